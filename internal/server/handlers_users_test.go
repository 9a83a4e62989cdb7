package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupIssuesUsableKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	userID, apiKey := signupUser(t, srv, "ada@example.com")

	rec := doRequest(t, srv, http.MethodGet, "/users/me", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	var me struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Linked bool   `json:"linked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, userID, me.UserID)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.False(t, me.Linked)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	signupUser(t, srv, "dup@example.com")

	rec := doRequest(t, srv, http.MethodPost, "/users/signup", map[string]string{"email": "dup@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 409, env.Code)
}

func TestSignupInvalidEmail(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/users/signup", map[string]string{"email": "not-an-email"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 400, env.Code)
}

func TestSignupWithoutEmail(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/users/signup", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A second anonymous signup must not collide.
	rec = doRequest(t, srv, http.MethodPost, "/users/signup", map[string]string{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUserMeRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/users/me", nil, map[string]string{"X-API-Key": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 401, env.Code)
}

func TestLinkedReflectsBinding(t *testing.T) {
	srv, a := newTestServer(t, nil)

	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-1")

	rec := doRequest(t, srv, http.MethodGet, "/users/me", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	var me struct {
		Linked bool `json:"linked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.True(t, me.Linked)
}
