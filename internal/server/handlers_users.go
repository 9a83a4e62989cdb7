package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/secrets"
)

// requireUser returns the UserContext resolved by the API-key middleware,
// or writes a 401 envelope and returns nil.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) *common.UserContext {
	uc := common.UserContextFromContext(r.Context())
	if uc == nil {
		WriteEnvelopeError(w, models.NewError(models.KindInvalidAPIKey, "api key required"))
		return nil
	}
	return uc
}

// resolveToken returns the SmartThings token to use for this request:
// per-request override first, then the user's managed binding, then the
// server-wide PAT when the user has no binding at all.
func (s *Server) resolveToken(r *http.Request, uc *common.UserContext) (string, error) {
	if uc.TokenOverride != "" {
		return uc.TokenOverride, nil
	}

	token, err := s.app.Tokens.AccessToken(r.Context(), uc.UserID)
	if err != nil {
		var be *models.BrokerError
		if errors.As(err, &be) && be.Kind == models.KindNotBound && s.app.Config.SmartThings.PAT != "" {
			return s.app.Config.SmartThings.PAT, nil
		}
		return "", err
	}
	return token, nil
}

// validateEmail performs a shallow sanity check; the address is only used
// for lookup and display, never for delivery.
func validateEmail(email string) string {
	if email == "" {
		return ""
	}
	if len(email) > 254 {
		return "email must be 254 characters or fewer"
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "email is not valid"
	}
	return ""
}

// handleUserSignup handles POST /users/signup — create an account and
// issue its API key. The raw key appears in this response and nowhere
// else; only its hash is stored.
func (s *Server) handleUserSignup(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if errMsg := validateEmail(req.Email); errMsg != "" {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "%s", errMsg))
		return
	}

	rawKey, err := secrets.GenerateAPIKey()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate api key")
		WriteEnvelopeError(w, models.WrapError(models.KindInternal, err, "failed to create user"))
		return
	}
	hash := secrets.HashAPIKey(rawKey, s.app.Config.Auth.APIKeyPepper)

	user, err := s.app.Store.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Msg("User created")

	WriteEnvelope(w, map[string]interface{}{
		"user_id": user.UserID,
		"email":   user.Email,
		"api_key": rawKey,
	})
}

// handleUserMe handles GET /users/me — the caller's own account.
func (s *Server) handleUserMe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc := s.requireUser(w, r)
	if uc == nil {
		return
	}

	user, err := s.app.Store.GetUser(r.Context(), uc.UserID)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	record, err := s.app.Store.GetTokenRecord(r.Context(), uc.UserID)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	WriteEnvelope(w, map[string]interface{}{
		"user_id":    user.UserID,
		"email":      user.Email,
		"created_at": user.CreatedAt,
		"linked":     record != nil,
	})
}
