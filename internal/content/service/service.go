package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yangjihun/FM-COMMIT/internal/content"
	"github.com/yangjihun/FM-COMMIT/internal/content/repository"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
)

// Collection implements the CRUD contract of one list collection.
type Collection[T any, PT content.Record[T]] struct {
	name string
	repo repository.Repository[T]
	now  func() time.Time
}

// NewCollection wraps repo; name labels metrics and logs.
func NewCollection[T any, PT content.Record[T]](name string, repo repository.Repository[T]) *Collection[T, PT] {
	return &Collection[T, PT]{name: name, repo: repo, now: time.Now}
}

// Name returns the collection label.
func (c *Collection[T, PT]) Name() string { return c.name }

func newID() string { return uuid.NewString() }

func (c *Collection[T, PT]) List(ctx context.Context) ([]T, error) {
	return c.repo.List(ctx)
}

func (c *Collection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	return c.repo.Get(ctx, id)
}

// prepare validates item and fills id, defaults and timestamps.
func (c *Collection[T, PT]) prepare(item *T, now time.Time) error {
	p := PT(item)
	p.SetID(strings.TrimSpace(p.GetID()))
	if p.GetID() == "" {
		p.SetID(newID())
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	p.Stamp(now)
	return nil
}

// Create assigns an id when the caller left it empty.
func (c *Collection[T, PT]) Create(ctx context.Context, item *T) (*T, error) {
	if err := c.prepare(item, c.now().UTC()); err != nil {
		return nil, err
	}
	if err := c.repo.Insert(ctx, item); err != nil {
		return nil, err
	}
	metrics.ContentMutations.WithLabelValues(c.name, "create").Inc()
	return item, nil
}

// Update merges patch into the stored item; see content.ApplyPatch.
func (c *Collection[T, PT]) Update(ctx context.Context, id string, patch []byte) (*T, error) {
	item, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := content.ApplyPatch(item, patch)
	if err != nil {
		return nil, err
	}
	p := PT(item)
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Stamp(c.now().UTC())
	if err := c.repo.Update(ctx, item, fields); err != nil {
		return nil, err
	}
	metrics.ContentMutations.WithLabelValues(c.name, "update").Inc()
	return item, nil
}

func (c *Collection[T, PT]) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	metrics.ContentMutations.WithLabelValues(c.name, "delete").Inc()
	return nil
}

// ReplaceAll validates every item before touching the store, so a bad batch
// changes nothing. Items without an id get one.
func (c *Collection[T, PT]) ReplaceAll(ctx context.Context, items []T) ([]T, error) {
	now := c.now().UTC()
	seen := make(map[string]bool, len(items))
	for i := range items {
		if err := c.prepare(&items[i], now); err != nil {
			return nil, err
		}
		id := PT(&items[i]).GetID()
		if seen[id] {
			return nil, content.ErrDuplicateID
		}
		seen[id] = true
	}
	if items == nil {
		items = []T{}
	}
	if err := c.repo.ReplaceAll(ctx, items); err != nil {
		return nil, err
	}
	metrics.ContentMutations.WithLabelValues(c.name, "replace_all").Inc()
	return items, nil
}

// Projects and RegularStudies are the two list collections.
type (
	Projects       = Collection[content.Project, *content.Project]
	RegularStudies = Collection[content.RegularStudy, *content.RegularStudy]
)

func NewProjects(repo repository.Repository[content.Project]) *Projects {
	return NewCollection[content.Project]("projects", repo)
}

func NewRegularStudies(repo repository.Repository[content.RegularStudy]) *RegularStudies {
	return NewCollection[content.RegularStudy]("regular_study", repo)
}
