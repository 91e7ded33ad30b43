package store

import (
	"context"
	"encoding/json"
	"fmt"

	"scibrain/pkg/domain"
)

// SaveAttempt assigns an id to a and prepends it to the owner's attempt list.
func (s *Store) SaveAttempt(ctx context.Context, a domain.QuizAttempt) (domain.QuizAttempt, error) {
	id, err := s.nextID(ctx, categoryAttempts)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	a.ID = id
	if a.CompletedAt.IsZero() {
		a.CompletedAt = s.now()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("encode attempt: %w", err)
	}
	if err := s.kv.LPush(ctx, userAttemptsKey(a.UserID), string(data)); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("save attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns the owner's attempts, newest first. A limit <= 0
// returns all of them.
func (s *Store) ListAttempts(ctx context.Context, userID int64, limit int) ([]domain.QuizAttempt, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := s.kv.LRange(ctx, userAttemptsKey(userID), 0, stop)
	if err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	out := make([]domain.QuizAttempt, 0, len(vals))
	for _, v := range vals {
		var a domain.QuizAttempt
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
