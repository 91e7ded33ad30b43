package store

import (
	"context"
	"fmt"
	"time"

	"scibrain/pkg/domain"
)

// sessionKeyTTL is the backend-native eviction hint for session keys. The
// stored ExpiresAt stays authoritative.
const sessionKeyTTL = 24 * time.Hour

// CreateSession stores a session for user, snapshotting its email and name.
func (s *Store) CreateSession(ctx context.Context, user domain.User, token string, expiresAt time.Time) (domain.Session, error) {
	id, err := s.nextID(ctx, categorySessions)
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		ID:        id,
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		Email:     user.Email,
		FullName:  user.FullName,
	}
	if err := s.putJSON(ctx, sessionKey(token), sess, sessionKeyTTL); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// GetSession returns the session for token if it has not expired. An expired
// session is deleted on the spot.
func (s *Store) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	if token == "" {
		return domain.Session{}, false, nil
	}
	var sess domain.Session
	ok, err := s.getJSON(ctx, sessionKey(token), &sess)
	if err != nil || !ok {
		return domain.Session{}, false, err
	}
	if !sess.Valid(s.now()) {
		if err := s.kv.Del(ctx, sessionKey(token)); err != nil {
			return domain.Session{}, false, fmt.Errorf("evict session: %w", err)
		}
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.kv.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
