package store

import (
	"time"

	"scibrain/pkg/domain"
)

// Persisted shape of a user. domain.User hides the password hash from JSON,
// so the stored copy uses its own type.
type userRecord struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		LastLogin:    r.LastLogin,
	}
}

func userRecordFrom(u domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
	}
}
