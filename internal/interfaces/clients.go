// Package interfaces defines service contracts for Hearth
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/tomfelder/hearth/internal/models"
)

// SmartThingsClient provides access to the SmartThings device API. Every
// call is made on behalf of a user, so the bearer token is passed per
// call rather than fixed at construction. Responses are returned as raw
// JSON because the broker passes vendor payloads through unmodified.
type SmartThingsClient interface {
	// ListLocations retrieves the caller's locations. Used as a cheap
	// probe that a token is accepted by the vendor.
	ListLocations(ctx context.Context, token string) (json.RawMessage, error)

	// ListDevices retrieves all devices visible to the token
	ListDevices(ctx context.Context, token string) (json.RawMessage, error)

	// GetDevice retrieves a device descriptor including its components
	// and advertised capabilities
	GetDevice(ctx context.Context, token, deviceID string) (json.RawMessage, error)

	// GetDeviceStatus retrieves the current attribute values of a device
	GetDeviceStatus(ctx context.Context, token, deviceID string) (json.RawMessage, error)

	// ExecuteCommands issues one or more capability commands to a device
	ExecuteCommands(ctx context.Context, token, deviceID string, commands []models.DeviceCommand) (json.RawMessage, error)

	// Get performs a plain GET against an absolute URL. Used for the
	// SmartApp CONFIRMATION handshake, which must call the vendor's
	// confirmationUrl before it expires.
	Get(ctx context.Context, url string) error
}

// OAuthClient is the SmartThings OAuth token endpoint.
type OAuthClient interface {
	// ExchangeCode trades an authorization code (plus optional PKCE
	// verifier) for tokens. Codes are single-use by vendor contract, so
	// failures are never retried here.
	ExchangeCode(ctx context.Context, code, pkceVerifier string) (*models.TokenResponse, error)

	// Refresh trades a refresh token for a fresh access token
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
}

// TokenSource supplies a currently valid SmartThings access token for a
// user, refreshing behind the scenes when needed.
type TokenSource interface {
	// AccessToken returns a usable access token for the user, or a
	// BrokerError of kind NotBound or RefreshFailed.
	AccessToken(ctx context.Context, userID string) (string, error)

	// Invalidate drops any cached token for the user. Called after a
	// rebind so the next request re-reads the store (last writer wins).
	Invalidate(userID string)
}
