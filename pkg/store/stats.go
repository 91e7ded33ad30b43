package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"scibrain/pkg/domain"
)

// Stats aggregates a user's counts and average quiz score. The average is the
// mean of attempt percentages, 0 when there are no attempts.
func (s *Store) Stats(ctx context.Context, userID int64) (domain.Stats, error) {
	var (
		stats    domain.Stats
		attempts []domain.QuizAttempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.indexLen(gctx, userDocumentsKey(userID))
		stats.Documents = n
		return err
	})
	g.Go(func() error {
		n, err := s.indexLen(gctx, userReviewersKey(userID))
		stats.Reviewers = n
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.ListAttempts(gctx, userID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, err
	}
	stats.QuizzesTaken = len(attempts)
	stats.AvgQuizScore = averagePercentage(attempts)
	return stats, nil
}

func averagePercentage(attempts []domain.QuizAttempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	var total float64
	for _, a := range attempts {
		total += a.Percentage
	}
	return total / float64(len(attempts))
}
