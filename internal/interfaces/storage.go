// Package interfaces defines service contracts for Hearth
package interfaces

import (
	"context"

	"github.com/tomfelder/hearth/internal/models"
)

// CredentialStore is the durable mapping from broker users to API-key
// hashes and SmartThings token records. It holds no business logic: it
// never decides whether a token needs refreshing.
type CredentialStore interface {
	// User accounts
	CreateUser(ctx context.Context, email, apiKeyHash string) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	FindUserByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Vendor token records. UpsertTokenRecord replaces the record
	// wholesale; GetTokenRecord returns nil (no error) when the user has
	// no binding.
	GetTokenRecord(ctx context.Context, userID string) (*models.TokenRecord, error)
	UpsertTokenRecord(ctx context.Context, record *models.TokenRecord) error

	// Lifecycle
	Close() error
}
