package service

import (
	"context"
	"time"

	"github.com/yangjihun/FM-COMMIT/internal/content"
	"github.com/yangjihun/FM-COMMIT/internal/content/repository"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
)

// StudyService manages the singleton study page.
type StudyService struct {
	repo repository.StudyRepository
	now  func() time.Time
}

func NewStudyService(repo repository.StudyRepository) *StudyService {
	return &StudyService{repo: repo, now: time.Now}
}

// Get returns the stored document, or an empty one with empty lists.
func (s *StudyService) Get(ctx context.Context) (*content.Study, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = &content.Study{}
	}
	doc.Normalize()
	return doc, nil
}

// Update merges patch into the current document, creating it if absent.
func (s *StudyService) Update(ctx context.Context, patch []byte) (*content.Study, error) {
	doc, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := content.ApplyPatch(doc, patch); err != nil {
		return nil, err
	}
	doc.Normalize()
	doc.Stamp(s.now().UTC())
	if err := s.repo.Put(ctx, doc); err != nil {
		return nil, err
	}
	metrics.ContentMutations.WithLabelValues("study", "update").Inc()
	return doc, nil
}
