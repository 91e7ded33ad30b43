package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"scibrain/pkg/domain"
)

// fetchConcurrency caps parallel record reads when materializing a listing.
const fetchConcurrency = 8

// SaveReviewer assigns an id to r, stores it and puts it at the head of the
// owner's reviewer index.
func (s *Store) SaveReviewer(ctx context.Context, r domain.Reviewer) (domain.Reviewer, error) {
	id, err := s.nextID(ctx, categoryReviewers)
	if err != nil {
		return domain.Reviewer{}, err
	}
	r.ID = id
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = s.now()
	}
	if err := s.putJSON(ctx, reviewerKey(id), r, 0); err != nil {
		return domain.Reviewer{}, err
	}
	if err := s.pushIndex(ctx, userReviewersKey(r.UserID), id); err != nil {
		return domain.Reviewer{}, err
	}
	return r, nil
}

// GetReviewer returns a reviewer owned by userID. Another user's reviewer is
// reported as not found.
func (s *Store) GetReviewer(ctx context.Context, id, userID int64) (domain.Reviewer, bool, error) {
	var r domain.Reviewer
	ok, err := s.getJSON(ctx, reviewerKey(id), &r)
	if err != nil || !ok {
		return domain.Reviewer{}, false, err
	}
	if r.UserID != userID {
		return domain.Reviewer{}, false, nil
	}
	return r, true, nil
}

// ListReviewers returns summaries of the owner's newest reviewers. The limit
// applies to the index before records are read; ids whose record is gone are
// skipped.
func (s *Store) ListReviewers(ctx context.Context, userID int64, limit int) ([]domain.ReviewerSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ids, err := s.indexIDs(ctx, userReviewersKey(userID), limit)
	if err != nil {
		return nil, err
	}
	found := make([]*domain.Reviewer, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var r domain.Reviewer
			ok, err := s.getJSON(gctx, reviewerKey(id), &r)
			if err != nil {
				return err
			}
			if ok {
				found[i] = &r
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]domain.ReviewerSummary, 0, len(found))
	for _, r := range found {
		if r == nil {
			continue
		}
		out = append(out, domain.ReviewerSummary{
			ID:          r.ID,
			Title:       r.Title,
			GeneratedAt: r.GeneratedAt,
			WordCount:   r.Metadata.WordCount,
		})
	}
	return out, nil
}

// DeleteReviewer removes a reviewer owned by userID together with its quiz
// set and its index entry. The source document is kept.
func (s *Store) DeleteReviewer(ctx context.Context, id, userID int64) (bool, error) {
	if _, ok, err := s.GetReviewer(ctx, id, userID); err != nil || !ok {
		return false, err
	}
	if err := s.kv.Del(ctx, reviewerKey(id), quizKey(id)); err != nil {
		return false, fmt.Errorf("delete reviewer: %w", err)
	}
	if err := s.removeFromIndex(ctx, userReviewersKey(userID), id); err != nil {
		return false, err
	}
	return true, nil
}
