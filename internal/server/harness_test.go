package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomfelder/hearth/internal/app"
	"github.com/tomfelder/hearth/internal/clients/smartthings"
	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/storage/credstore"
	"github.com/tomfelder/hearth/internal/tokens"
)

// envelope mirrors the wire shape for assertions.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// newTestServer builds a Server backed by a temp credential store and the
// given fake vendor. A nil vendor handler answers 404 to everything.
func newTestServer(t *testing.T, vendor http.Handler) (*Server, *app.App) {
	t.Helper()

	if vendor == nil {
		vendor = http.NotFoundHandler()
	}
	vs := httptest.NewServer(vendor)
	t.Cleanup(vs.Close)

	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Auth.APIKeyPepper = "test-pepper"
	cfg.Auth.StateSecret = "test-state-secret"
	cfg.SmartThings.BaseURL = vs.URL
	cfg.SmartThings.AuthorizeURL = vs.URL + "/oauth/authorize"
	cfg.SmartThings.TokenURL = vs.URL + "/oauth/token"
	cfg.SmartThings.ClientID = "client-1"
	cfg.SmartThings.ClientSecret = "secret-1"
	cfg.SmartThings.RedirectURI = "http://broker.local/oauth/smartthings/callback"

	logger := common.NewSilentLogger()

	store, err := credstore.NewStore(logger, cfg.Storage.Path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	devices := smartthings.NewClient(
		smartthings.WithBaseURL(vs.URL),
		smartthings.WithLogger(logger),
		smartthings.WithRateLimit(1000),
	)
	oauth := smartthings.NewOAuth(
		cfg.SmartThings.TokenURL,
		cfg.SmartThings.ClientID,
		cfg.SmartThings.ClientSecret,
		cfg.SmartThings.RedirectURI,
		smartthings.WithOAuthLogger(logger),
	)
	manager := tokens.NewManager(store, oauth, tokens.WithLogger(logger))

	a := &app.App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Devices:     devices,
		OAuth:       oauth,
		Tokens:      manager,
		StartupTime: time.Now(),
	}
	return NewServer(a), a
}

// doRequest runs one request through the full middleware stack.
func doRequest(t *testing.T, srv *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// rawRequest runs one request with a verbatim body through the stack.
func rawRequest(t *testing.T, srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope parses the recorded response body as an envelope.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// signupUser creates an account through the API and returns its identity
// and raw key.
func signupUser(t *testing.T, srv *Server, email string) (userID, apiKey string) {
	t.Helper()

	rec := doRequest(t, srv, http.MethodPost, "/users/signup", map[string]string{"email": email}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	var data struct {
		UserID string `json:"user_id"`
		APIKey string `json:"api_key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.UserID)
	require.NotEmpty(t, data.APIKey)
	return data.UserID, data.APIKey
}

// bindUser stores a token record for the user directly, simulating a
// completed authorization.
func bindUser(t *testing.T, a *app.App, userID, accessToken string) {
	t.Helper()
	err := a.Store.UpsertTokenRecord(context.Background(), &models.TokenRecord{
		UserID:      userID,
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	require.NoError(t, err)
}
