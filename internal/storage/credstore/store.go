// Package credstore implements CredentialStore using BadgerHold. It holds
// broker user accounts (with their API-key hashes) and the SmartThings
// token record bound to each user.
package credstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/models"
)

// Store implements interfaces.CredentialStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// userRecord is the stored shape of a user. APIKeyHash and Email are
// indexed for lookup at authentication and signup time.
type userRecord struct {
	UserID     string
	Email      string `badgerhold:"index"`
	APIKeyHash string `badgerhold:"index"`
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// tokenRecord is the stored shape of a SmartThings token binding, keyed
// by UserID (one binding per user).
type tokenRecord struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	ModifiedAt   time.Time
}

// NewStore creates a new CredentialStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create credstore path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open credstore at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Credential store opened")
	return &Store{db: db, logger: logger}, nil
}

// --- User accounts ---

// CreateUser persists a new user with the given (already hashed) API key.
// Email is optional; when present it must be unique.
func (s *Store) CreateUser(_ context.Context, email, apiKeyHash string) (*models.User, error) {
	if apiKeyHash == "" {
		return nil, fmt.Errorf("api key hash is required")
	}
	if email != "" {
		var existing []userRecord
		if err := s.db.Find(&existing, badgerhold.Where("Email").Eq(email).Index("Email")); err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if len(existing) > 0 {
			return nil, models.NewError(models.KindConflict, "email already registered")
		}
	}

	now := time.Now()
	rec := userRecord{
		UserID:     uuid.New().String(),
		Email:      email,
		APIKeyHash: apiKeyHash,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.db.Insert(rec.UserID, rec); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Debug().Str("user_id", rec.UserID).Msg("User created")
	return toUser(&rec), nil
}

func (s *Store) GetUser(_ context.Context, userID string) (*models.User, error) {
	var rec userRecord
	if err := s.db.Get(userID, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewError(models.KindNotFound, "user '%s' not found", userID)
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}
	return toUser(&rec), nil
}

// FindUserByAPIKeyHash resolves a user from a presented key's hash.
// Returns nil (no error) when no user matches.
func (s *Store) FindUserByAPIKeyHash(_ context.Context, hash string) (*models.User, error) {
	var recs []userRecord
	if err := s.db.Find(&recs, badgerhold.Where("APIKeyHash").Eq(hash).Index("APIKeyHash")); err != nil {
		return nil, fmt.Errorf("failed to look up api key hash: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return toUser(&recs[0]), nil
}

// FindUserByEmail returns nil (no error) when no user matches.
func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, nil
	}
	var recs []userRecord
	if err := s.db.Find(&recs, badgerhold.Where("Email").Eq(email).Index("Email")); err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return toUser(&recs[0]), nil
}

// --- Vendor token records ---

// GetTokenRecord returns the user's SmartThings binding, or nil when the
// user has never bound a token.
func (s *Store) GetTokenRecord(_ context.Context, userID string) (*models.TokenRecord, error) {
	var rec tokenRecord
	if err := s.db.Get(userID, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token record for '%s': %w", userID, err)
	}
	return toTokenRecord(&rec), nil
}

// UpsertTokenRecord replaces the user's binding wholesale. CreatedAt is
// preserved across overwrites; ModifiedAt always advances.
func (s *Store) UpsertTokenRecord(_ context.Context, record *models.TokenRecord) error {
	if record == nil || record.UserID == "" {
		return fmt.Errorf("token record requires a user id")
	}
	now := time.Now()
	rec := tokenRecord{
		UserID:       record.UserID,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		TokenType:    record.TokenType,
		Scope:        record.Scope,
		ExpiresAt:    record.ExpiresAt,
		CreatedAt:    record.CreatedAt,
		ModifiedAt:   now,
	}

	var existing tokenRecord
	if err := s.db.Get(record.UserID, &existing); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	if err := s.db.Upsert(record.UserID, rec); err != nil {
		return fmt.Errorf("failed to upsert token record for '%s': %w", record.UserID, err)
	}
	s.logger.Debug().Str("user_id", record.UserID).Msg("Token record saved")
	return nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toUser(rec *userRecord) *models.User {
	return &models.User{
		UserID:     rec.UserID,
		Email:      rec.Email,
		APIKeyHash: rec.APIKeyHash,
		CreatedAt:  rec.CreatedAt,
		ModifiedAt: rec.ModifiedAt,
	}
}

func toTokenRecord(rec *tokenRecord) *models.TokenRecord {
	return &models.TokenRecord{
		UserID:       rec.UserID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
		Scope:        rec.Scope,
		ExpiresAt:    rec.ExpiresAt,
		CreatedAt:    rec.CreatedAt,
		ModifiedAt:   rec.ModifiedAt,
	}
}
