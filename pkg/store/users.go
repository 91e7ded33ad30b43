package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scibrain/pkg/domain"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a user under both its email and its id.
// The email key is claimed first so concurrent signups for one address
// cannot both succeed.
func (s *Store) CreateUser(ctx context.Context, fullName, email, passwordHash string) (domain.User, error) {
	email = normalizeEmail(email)
	if _, exists, err := s.kv.Get(ctx, userEmailKey(email)); err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	} else if exists {
		return domain.User{}, ErrEmailTaken
	}
	id, err := s.nextID(ctx, categoryUsers)
	if err != nil {
		return domain.User{}, err
	}
	rec := userRecord{
		ID:           id,
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode user: %w", err)
	}
	won, err := s.kv.SetNX(ctx, userEmailKey(email), string(data))
	if err != nil {
		return domain.User{}, fmt.Errorf("claim email: %w", err)
	}
	if !won {
		return domain.User{}, ErrEmailTaken
	}
	if err := s.kv.Set(ctx, userIDKey(id), string(data), 0); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return rec.toDomain(), nil
}

// GetUserByEmail looks a user up by (case-insensitive) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var rec userRecord
	ok, err := s.getJSON(ctx, userEmailKey(normalizeEmail(email)), &rec)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return rec.toDomain(), true, nil
}

// GetUserByID returns a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (domain.User, bool, error) {
	var rec userRecord
	ok, err := s.getJSON(ctx, userIDKey(id), &rec)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return rec.toDomain(), true, nil
}

// UpdateLastLogin stamps the user's last login and rewrites both copies.
func (s *Store) UpdateLastLogin(ctx context.Context, id int64) (domain.User, bool, error) {
	user, ok, err := s.GetUserByID(ctx, id)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	now := s.now()
	user.LastLogin = &now
	rec := userRecordFrom(user)
	if err := s.putJSON(ctx, userIDKey(id), rec, 0); err != nil {
		return domain.User{}, false, err
	}
	if err := s.putJSON(ctx, userEmailKey(user.Email), rec, 0); err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}
