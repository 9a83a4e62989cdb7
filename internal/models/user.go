package models

import "time"

// User is a broker account. Each user owns exactly one API key (stored as
// a peppered hash, never in plaintext) and at most one TokenRecord.
type User struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	APIKeyHash string    `json:"api_key_hash"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}
