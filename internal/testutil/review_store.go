package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/turtacn/NeedsFine/internal/domain/review"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

// ReviewStore is an in-memory review.Repository.
type ReviewStore struct {
	mu      sync.Mutex
	reviews map[string]*review.Review
	order   []string

	// FailUpsertIDs makes UpsertAnalyses fail for batches containing any of
	// these ids.
	FailUpsertIDs map[string]bool
}

// NewReviewStore returns an empty store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{reviews: make(map[string]*review.Review)}
}

func (s *ReviewStore) Create(_ context.Context, r *review.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[r.ID]; ok {
		return apperrors.New(apperrors.ErrCodeConflict, fmt.Sprintf("review %s exists", r.ID))
	}
	cp := *r
	s.reviews[r.ID] = &cp
	s.order = append(s.order, r.ID)
	return nil
}

func (s *ReviewStore) FindByID(_ context.Context, id string) (*review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeReviewNotFound, fmt.Sprintf("review %s not found", id))
	}
	cp := *r
	return &cp, nil
}

func (s *ReviewStore) List(_ context.Context, f review.ListFilter) ([]*review.Review, error) {
	f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*review.Review
	// newest first
	for i := len(s.order) - 1; i >= 0 && len(out) < f.Limit; i-- {
		r := s.reviews[s.order[i]]
		if f.StoreName != "" && r.StoreName != f.StoreName {
			continue
		}
		if r.IsHidden && !f.IncludeHidden {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *ReviewStore) CountByUserStore(_ context.Context, userID, storeName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reviews {
		if r.UserID == userID && r.StoreName == storeName {
			n++
		}
	}
	return n, nil
}

func (s *ReviewStore) ListPage(_ context.Context, afterID string, limit int) ([]*review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.reviews))
	for id := range s.reviews {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*review.Review, 0, len(ids))
	for _, id := range ids {
		cp := *s.reviews[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *ReviewStore) UpsertAnalyses(_ context.Context, reviews []*review.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reviews {
		if s.FailUpsertIDs[r.ID] {
			return apperrors.New(apperrors.ErrCodeDatabaseError, "upsert failed")
		}
	}
	for _, r := range reviews {
		cp := *r
		if _, ok := s.reviews[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.reviews[r.ID] = &cp
	}
	return nil
}

func (s *ReviewStore) Stats(_ context.Context, topStores int) (*review.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &review.Stats{TopStores: []review.StoreStat{}}
	byStore := map[string]*review.StoreStat{}
	var sum float64
	for _, r := range s.reviews {
		if r.IsHidden {
			continue
		}
		st.TotalReviews++
		sum += r.Score
		ss, ok := byStore[r.StoreName]
		if !ok {
			ss = &review.StoreStat{StoreName: r.StoreName}
			byStore[r.StoreName] = ss
		}
		ss.AverageScore = (ss.AverageScore*float64(ss.ReviewCount) + r.Score) / float64(ss.ReviewCount+1)
		ss.ReviewCount++
	}
	if st.TotalReviews > 0 {
		st.AverageScore = sum / float64(st.TotalReviews)
	}
	for _, ss := range byStore {
		st.TopStores = append(st.TopStores, *ss)
	}
	sort.Slice(st.TopStores, func(i, j int) bool {
		a, b := st.TopStores[i], st.TopStores[j]
		if a.ReviewCount != b.ReviewCount {
			return a.ReviewCount > b.ReviewCount
		}
		return a.StoreName < b.StoreName
	})
	if len(st.TopStores) > topStores {
		st.TopStores = st.TopStores[:topStores]
	}
	return st, nil
}

// Len returns the number of stored reviews.
func (s *ReviewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}
