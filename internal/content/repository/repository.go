package repository

import (
	"context"

	"github.com/yangjihun/FM-COMMIT/internal/content"
)

// Repository stores one list collection. Lookups and mutations on a missing
// id return content.ErrNotFound; inserting a taken id returns
// content.ErrDuplicateID. List returns items in insertion order.
type Repository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, item *T) error
	// Update writes the named fields of item to the stored item with the same id.
	Update(ctx context.Context, item *T, fields []string) error
	Delete(ctx context.Context, id string) error
	// ReplaceAll swaps the whole collection for items, keeping their order.
	ReplaceAll(ctx context.Context, items []T) error
}

// StudyRepository stores the singleton study document.
type StudyRepository interface {
	// Get returns nil when no document has been written yet.
	Get(ctx context.Context) (*content.Study, error)
	Put(ctx context.Context, s *content.Study) error
}
