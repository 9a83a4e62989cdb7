// Package tokens implements the SmartThings token lifecycle: expiry-driven
// refresh, per-user serialization, and an invalidate-on-rebind cache.
package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/interfaces"
	"github.com/tomfelder/hearth/internal/models"
)

// DefaultSafetyMargin is subtracted from a token's lifetime before it is
// considered usable, so a token never expires mid-flight at the vendor.
const DefaultSafetyMargin = 60 * time.Second

// Manager implements interfaces.TokenSource. All refresh work for a given
// user is serialized behind a per-user mutex: a second concurrent caller
// either reuses the first caller's freshly refreshed token or performs its
// own redundant-but-safe refresh, never observing a half-written record.
type Manager struct {
	store        interfaces.CredentialStore
	oauth        interfaces.OAuthClient
	logger       *common.Logger
	safetyMargin time.Duration
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	token     string
	expiresAt time.Time // zero means no known expiry
}

// ManagerOption configures the manager
type ManagerOption func(*Manager)

// WithSafetyMargin overrides the refresh-ahead window.
func WithSafetyMargin(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.safetyMargin = d
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a token manager over the given store and OAuth
// client. oauth may be nil when refresh is not configured; expired
// refreshable tokens then fail rather than self-heal.
func NewManager(store interfaces.CredentialStore, oauth interfaces.OAuthClient, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		oauth:        oauth,
		logger:       common.NewSilentLogger(),
		safetyMargin: DefaultSafetyMargin,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
		cache:        make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// userLock returns the mutex serializing token work for one user.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// usable reports whether a token with the given expiry can still be
// presented to the vendor, leaving the safety margin.
func (m *Manager) usable(expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return true
	}
	return m.now().Add(m.safetyMargin).Before(expiresAt)
}

// AccessToken returns a currently valid access token for the user. The
// stored record is only mutated on a successful refresh; a failed refresh
// leaves the prior record intact as last-known-good state.
func (m *Manager) AccessToken(ctx context.Context, userID string) (string, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if entry, ok := m.cacheGet(userID); ok && m.usable(entry.expiresAt) {
		return entry.token, nil
	}

	record, err := m.store.GetTokenRecord(ctx, userID)
	if err != nil {
		return "", err
	}
	if record == nil || record.AccessToken == "" {
		return "", models.NewError(models.KindNotBound, "no SmartThings token bound for this user")
	}

	if m.usable(record.ExpiresAt) {
		m.cacheSet(userID, record.AccessToken, record.ExpiresAt)
		return record.AccessToken, nil
	}

	// Expired or near expiry. PAT-style bindings carry no refresh token;
	// return the stored token as-is and let the vendor call surface any
	// authorization failure. This mode has no self-healing.
	if record.RefreshToken == "" {
		m.logger.Debug().Str("user_id", userID).Msg("Token past expiry with no refresh token, returning as-is")
		return record.AccessToken, nil
	}

	if m.oauth == nil {
		return "", models.NewError(models.KindRefreshFailed, "token expired and refresh is not configured")
	}

	resp, err := m.oauth.Refresh(ctx, record.RefreshToken)
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("Token refresh failed")
		return "", err
	}

	now := m.now()
	updated := &models.TokenRecord{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresAt:    resp.ComputeExpiresAt(now),
		CreatedAt:    record.CreatedAt,
	}
	// The vendor may or may not rotate these; keep the prior values when
	// the response omits them.
	if updated.RefreshToken == "" {
		updated.RefreshToken = record.RefreshToken
	}
	if updated.Scope == "" {
		updated.Scope = record.Scope
	}

	if err := m.store.UpsertTokenRecord(ctx, updated); err != nil {
		return "", models.WrapError(models.KindRefreshFailed, err, "failed to persist refreshed token")
	}

	m.cacheSet(userID, updated.AccessToken, updated.ExpiresAt)
	m.logger.Info().Str("user_id", userID).Time("expires_at", updated.ExpiresAt).Msg("SmartThings token refreshed")
	return updated.AccessToken, nil
}

// Invalidate drops the cached token for a user. Called after a rebind via
// the authorization callback so the next request re-reads the store.
func (m *Manager) Invalidate(userID string) {
	m.mu.Lock()
	delete(m.cache, userID)
	m.mu.Unlock()
}

func (m *Manager) cacheGet(userID string) (cacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[userID]
	return entry, ok
}

func (m *Manager) cacheSet(userID, token string, expiresAt time.Time) {
	m.mu.Lock()
	m.cache[userID] = cacheEntry{token: token, expiresAt: expiresAt}
	m.mu.Unlock()
}

// Ensure Manager implements TokenSource
var _ interfaces.TokenSource = (*Manager)(nil)
