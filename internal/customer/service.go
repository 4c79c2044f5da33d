package customer

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=customer
type Repository interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	FindOrCreateCustomer(ctx context.Context, c *Customer) (bool, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByName(ctx context.Context, name string) (*Customer, error)
	SearchCustomers(ctx context.Context, fragment string) ([]*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
}

type Service struct {
	repo   Repository
	region string
}

// NewService returns a customer service. region is the default ISO region used
// to parse phone numbers written without a country code.
func NewService(repo Repository, region string) *Service {
	return &Service{repo: repo, region: region}
}

type CreateParams struct {
	Name  string
	Phone string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Customer, error) {
	name := normalizeName(params.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	c := &Customer{Name: name}

	if strings.TrimSpace(params.Phone) != "" {
		phone, err := s.normalizePhone(params.Phone)
		if err != nil {
			return nil, err
		}

		c.Phone = &phone
	}

	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// Find looks a customer up by exact name, falling back to the shortest name
// containing the text.
func (s *Service) Find(ctx context.Context, name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	c, err := s.repo.FindByName(ctx, name)
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}

	candidates, err := s.repo.SearchCustomers(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	return candidates[0], nil
}

// FindOrCreate resolves a name mentioned in conversation, registering a new
// customer when nobody matches.
func (s *Service) FindOrCreate(ctx context.Context, name string) (*Customer, error) {
	c, err := s.Find(ctx, name)
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}

	c = &Customer{Name: normalizeName(name)}
	if c.Name == "" {
		return nil, ErrInvalidName
	}

	if _, err := s.repo.FindOrCreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func normalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return cases.Title(language.Und).String(name)
}

func (s *Service) normalizePhone(raw string) (string, error) {
	num, err := libphonenumber.Parse(raw, s.region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}

	return libphonenumber.Format(num, libphonenumber.E164), nil
}
