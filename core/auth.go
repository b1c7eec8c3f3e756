package core

import "time"

// Nonce is a single-use challenge value
type Nonce struct {
	Value     string    // Random alphanumeric token
	CreatedAt time.Time // When the nonce was issued
	ExpiresAt time.Time // After this instant the nonce is rejected
	Consumed  bool      // Set once a verification has used it
}

// Expired reports whether the nonce is past its expiry at t
func (n Nonce) Expired(t time.Time) bool {
	return !n.ExpiresAt.IsZero() && !t.Before(n.ExpiresAt)
}

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Lower-cased ethereum address of the user
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// Account is a sign-in identity. Immutable once created.
type Account struct {
	ID        uint
	Address   string
	CreatedAt time.Time
}

// APIKey authorizes registry calls on behalf of an account
type APIKey struct {
	ID        string
	AccountID uint
	Name      string
	Prefix    string
	CreatedAt time.Time
}
