package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=inventory
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByName(ctx context.Context, name string) (*Item, error)
	SearchItems(ctx context.Context, fragment string) ([]*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*Item, error)
}

type Service struct {
	repo              Repository
	lowStockThreshold int
}

func NewService(repo Repository, lowStockThreshold int) *Service {
	return &Service{
		repo:              repo,
		lowStockThreshold: lowStockThreshold,
	}
}

type CreateParams struct {
	Name              string
	Quantity          int
	Unit              string
	UnitPrice         decimal.Decimal
	LowStockThreshold *int
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Item, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" || params.Quantity < 0 || params.UnitPrice.IsNegative() {
		return nil, ErrInvalid
	}

	item := &Item{
		Name:              name,
		Quantity:          params.Quantity,
		Unit:              params.Unit,
		UnitPrice:         params.UnitPrice,
		LowStockThreshold: s.lowStockThreshold,
	}
	if item.Unit == "" {
		item.Unit = DefaultUnit
	}

	if params.LowStockThreshold != nil {
		item.LowStockThreshold = *params.LowStockThreshold
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Item, error) {
	return s.repo.ListItems(ctx)
}

// LowStock lists the items at or below their alert threshold.
func (s *Service) LowStock(ctx context.Context) ([]*Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	var low []*Item

	for _, it := range items {
		if it.IsLow() {
			low = append(low, it)
		}
	}

	return low, nil
}

// Match resolves a free-text item name against the catalog. An exact
// case-insensitive name wins, then the shortest catalog name containing the
// text, then the best fuzzy subsequence match. ErrNotFound when nothing fits.
func (s *Service) Match(ctx context.Context, name string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	item, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return item, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	candidates, err := s.repo.SearchItems(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			if len(candidates[i].Name) != len(candidates[j].Name) {
				return len(candidates[i].Name) < len(candidates[j].Name)
			}

			return candidates[i].Name < candidates[j].Name
		})

		return candidates[0], nil
	}

	if len([]rune(name)) < 3 {
		return nil, ErrNotFound
	}

	return s.fuzzyMatch(ctx, name)
}

func (s *Service) fuzzyMatch(ctx context.Context, name string) (*Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	// Casers are stateful, so each lookup folds with its own.
	fold := cases.Fold()

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = fold.String(it.Name)
	}

	matches := fuzzy.Find(fold.String(name), names)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	return items[matches[0].Index], nil
}

// SetPrice records a learned unit price for an existing item.
func (s *Service) SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalid
	}

	return s.repo.UpdatePrice(ctx, id, price)
}

// Adjust applies a signed stock delta. A delta that would take the quantity
// below zero fails with ErrInsufficientStock and changes nothing.
func (s *Service) Adjust(ctx context.Context, id uuid.UUID, delta int) (*Item, error) {
	if delta == 0 {
		return s.repo.GetItem(ctx, id)
	}

	item, err := s.repo.AdjustQuantity(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjusting stock by %d: %w", delta, err)
	}

	return item, nil
}

type UpsertParams struct {
	Name              string
	Quantity          int
	UnitPrice         *decimal.Decimal
	LowStockThreshold *int
}

// Upsert creates the item or overwrites its stock level, and its price and
// threshold when given. It reports whether the item was created.
func (s *Service) Upsert(ctx context.Context, params UpsertParams) (*Item, bool, error) {
	item, err := s.repo.FindByName(ctx, strings.TrimSpace(params.Name))
	if errors.Is(err, ErrNotFound) {
		create := CreateParams{
			Name:              params.Name,
			Quantity:          params.Quantity,
			LowStockThreshold: params.LowStockThreshold,
		}
		if params.UnitPrice != nil {
			create.UnitPrice = *params.UnitPrice
		}

		item, err := s.Create(ctx, create)

		return item, err == nil, err
	}

	if err != nil {
		return nil, false, err
	}

	if params.Quantity < 0 {
		return nil, false, ErrInvalid
	}

	item.Quantity = params.Quantity
	if params.UnitPrice != nil && !params.UnitPrice.IsNegative() {
		item.UnitPrice = *params.UnitPrice
	}

	if params.LowStockThreshold != nil {
		item.LowStockThreshold = *params.LowStockThreshold
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, false, err
	}

	return item, false, nil
}
