// Package matching learns the shop's own words for catalog items, so that
// "doodh" resolves to "Milk" once the shopkeeper has said so.
package matching

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAlias = errors.New("raw pattern and item name are required")

type Alias struct {
	ID         uuid.UUID
	RawPattern string
	ItemName   string
	CreatedAt  time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindMatch(ctx context.Context, raw string) (string, error)
	CreateMapping(ctx context.Context, rawPattern, itemName string) error
	ListMappings(ctx context.Context) ([]*Alias, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Alias returns the catalog name for the raw item text, or "" when no learned
// pattern occurs in it. The longest matching pattern wins.
func (s *Service) Alias(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	return s.repo.FindMatch(ctx, raw)
}

// Learn remembers that rawPattern refers to itemName, replacing any earlier
// mapping for the same pattern.
func (s *Service) Learn(ctx context.Context, rawPattern, itemName string) error {
	rawPattern = strings.ToLower(strings.Join(strings.Fields(rawPattern), " "))
	itemName = strings.TrimSpace(itemName)

	if rawPattern == "" || itemName == "" {
		return ErrInvalidAlias
	}

	return s.repo.CreateMapping(ctx, rawPattern, itemName)
}

func (s *Service) List(ctx context.Context) ([]*Alias, error) {
	return s.repo.ListMappings(ctx)
}
