package models

import "time"

// TokenRecord holds the SmartThings OAuth tokens bound to a single user.
// It is written only by the authorization callback (initial bind) and the
// token manager (refresh), always as a wholesale replacement.
type TokenRecord struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"` // empty for PAT-style bindings
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"` // zero means no known expiry
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// HasExpiry reports whether the record carries a known expiry timestamp.
func (t *TokenRecord) HasExpiry() bool {
	return !t.ExpiresAt.IsZero()
}

// TokenResponse is the payload returned by the SmartThings OAuth token
// endpoint for both the authorization-code and refresh grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

// ComputeExpiresAt converts the relative expires_in into an absolute timestamp,
// or the zero time when the vendor reported no expiry.
func (t *TokenResponse) ComputeExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}
