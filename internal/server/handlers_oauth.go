package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/secrets"
)

// generatePKCEVerifier returns a fresh PKCE code verifier and its S256
// challenge.
func generatePKCEVerifier() (verifier, challenge string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	h := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(h[:])
	return verifier, challenge, nil
}

// handleOAuthAuthorize handles GET /oauth/smartthings/authorize — send the
// caller to the vendor's consent page with a signed state token. The PKCE
// verifier rides inside the state so the callback needs no session store.
//
// Redirects by default; ?redirect=false returns the URL in the envelope
// instead, for clients that open the browser themselves.
func (s *Server) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc := s.requireUser(w, r)
	if uc == nil {
		return
	}

	st := s.app.Config.SmartThings
	if !st.OAuthConfigured() {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "smartthings oauth is not configured"))
		return
	}

	verifier, challenge, err := generatePKCEVerifier()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PKCE verifier")
		WriteEnvelopeError(w, models.WrapError(models.KindInternal, err, "failed to start authorization"))
		return
	}

	state, err := secrets.SignState(uc.UserID, s.app.Config.Auth.GetStateTTL(), []byte(s.app.Config.Auth.StateSecret), verifier)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign oauth state")
		WriteEnvelopeError(w, models.WrapError(models.KindInternal, err, "failed to start authorization"))
		return
	}

	u, err := url.Parse(st.AuthorizeURL)
	if err != nil {
		WriteEnvelopeError(w, models.WrapError(models.KindInternal, err, "invalid authorize url"))
		return
	}
	q := u.Query()
	q.Set("client_id", st.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", st.RedirectURI)
	q.Set("scope", st.Scope)
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()

	s.logger.Info().Str("user_id", uc.UserID).Msg("Authorization started")

	if r.URL.Query().Get("redirect") == "false" {
		WriteEnvelope(w, map[string]string{"authorize_url": u.String()})
		return
	}
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// handleOAuthCallback handles GET /oauth/smartthings/callback — the vendor
// redirect target. Identity comes from the signed state, not from an API
// key; the browser arriving here carries none.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		WriteEnvelopeError(w, models.NewError(models.KindCodeExchange,
			"authorization denied by vendor: %s %s", errCode, q.Get("error_description")))
		return
	}

	code := q.Get("code")
	stateToken := q.Get("state")
	if code == "" || stateToken == "" {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "code and state are required"))
		return
	}

	state, err := secrets.VerifyState(stateToken, []byte(s.app.Config.Auth.StateSecret))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected oauth callback state")
		WriteEnvelopeError(w, models.NewError(models.KindInvalidState, "invalid or expired state"))
		return
	}

	if s.app.OAuth == nil {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "smartthings oauth is not configured"))
		return
	}

	// Codes are single-use on the vendor side; a failed exchange is
	// surfaced as-is, never retried.
	resp, err := s.app.OAuth.ExchangeCode(r.Context(), code, state.PKCEVerifier)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	now := time.Now()
	record := &models.TokenRecord{
		UserID:       state.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresAt:    resp.ComputeExpiresAt(now),
	}
	if err := s.app.Store.UpsertTokenRecord(r.Context(), record); err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	// Drop any cached token so the next request reads the new binding.
	s.app.Tokens.Invalidate(state.UserID)

	s.logger.Info().Str("user_id", state.UserID).Msg("SmartThings account linked")

	WriteEnvelope(w, map[string]interface{}{
		"user_id":    state.UserID,
		"token_type": record.TokenType,
		"scope":      record.Scope,
		"expires_at": record.ExpiresAt,
	})
}

// handleAuthValidate handles GET /auth/validate — prove the caller's
// binding works by making the cheapest possible vendor call.
func (s *Server) handleAuthValidate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc := s.requireUser(w, r)
	if uc == nil {
		return
	}

	token, err := s.resolveToken(r, uc)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	locations, err := s.app.Devices.ListLocations(r.Context(), token)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	WriteEnvelope(w, map[string]interface{}{
		"valid":     true,
		"locations": locations,
	})
}
