package repository

import (
	"context"

	"github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
)

// Repository records which news items have already been delivered.
type Repository interface {
	// EnsureTable creates the named table if needed.
	EnsureTable(ctx context.Context, name string) error
	// FilterNew returns the items whose title is not recorded yet, in input order.
	FilterNew(ctx context.Context, items []domain.NewsItem) ([]domain.NewsItem, error)
	// Append records items one by one; a failed insert does not stop the rest.
	Append(ctx context.Context, items []domain.NewsItem) (int, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]domain.NewsItem, error)
	Close() error
}
