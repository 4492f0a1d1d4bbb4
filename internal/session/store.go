// Package session provides the server-side session store: an explicit
// token -> identity mapping injected into request handling, with expiry
// checked on every access.
package session

import (
	"context"
	"time"

	"github.com/campuskit/roombooking/internal/domain"
)

// Data is the identity a live session carries.
type Data struct {
	UserID      int64       `json:"user_id"`
	Role        domain.Role `json:"role"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Expired reports whether the session has passed its fixed lifetime.
func (d *Data) Expired() bool {
	return time.Now().After(d.ExpiresAt)
}

type Store interface {
	// Create stores data under token for ttl.
	Create(ctx context.Context, token string, data Data, ttl time.Duration) error
	// Get returns the session for token, or nil when the token is unknown
	// or the session has expired. Absence is not an error.
	Get(ctx context.Context, token string) (*Data, error)
	// Delete destroys the session. Deleting an unknown token is a no-op.
	Delete(ctx context.Context, token string) error
}
