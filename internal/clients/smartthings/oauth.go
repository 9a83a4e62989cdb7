package smartthings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/interfaces"
	"github.com/tomfelder/hearth/internal/models"
)

// OAuth implements the OAuthClient interface against the SmartThings
// token endpoint. Client credentials are sent via HTTP basic auth, form
// body carries the grant parameters.
type OAuth struct {
	tokenURL     string
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
	logger       *common.Logger
}

// OAuthOption configures the OAuth client
type OAuthOption func(*OAuth)

// WithOAuthTimeout sets the HTTP timeout
func WithOAuthTimeout(timeout time.Duration) OAuthOption {
	return func(o *OAuth) {
		o.httpClient.Timeout = timeout
	}
}

// WithOAuthLogger sets the logger
func WithOAuthLogger(logger *common.Logger) OAuthOption {
	return func(o *OAuth) {
		o.logger = logger
	}
}

// NewOAuth creates a token-endpoint client.
func NewOAuth(tokenURL, clientID, clientSecret, redirectURI string, opts ...OAuthOption) *OAuth {
	o := &OAuth{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExchangeCode trades an authorization code for tokens.
func (o *OAuth) ExchangeCode(ctx context.Context, code, pkceVerifier string) (*models.TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {o.redirectURI},
	}
	if pkceVerifier != "" {
		form.Set("code_verifier", pkceVerifier)
	}
	return o.post(ctx, form, models.KindCodeExchange)
}

// Refresh trades a refresh token for a fresh access token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return o.post(ctx, form, models.KindRefreshFailed)
}

// post submits the grant and decodes the token payload. Vendor rejections
// surface the upstream status and body under the given failure kind;
// transport errors surface as VendorUnavailable.
func (o *OAuth) post(ctx context.Context, form url.Values, failKind models.ErrorKind) (*models.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(o.clientID, o.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	o.logger.Debug().Str("grant_type", form.Get("grant_type")).Msg("SmartThings token request")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, models.WrapError(models.KindVendorUnavailable, err, "failed to reach SmartThings token endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.WrapError(models.KindVendorUnavailable, err, "failed to read token response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var data interface{}
		if json.Valid(raw) {
			data = json.RawMessage(raw)
		} else {
			data = map[string]string{"raw": string(raw)}
		}
		return nil, &models.BrokerError{
			Kind: failKind,
			Msg:  fmt.Sprintf("SmartThings token endpoint returned %d", resp.StatusCode),
			Data: data,
		}
	}

	var tok models.TokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, models.WrapError(models.KindVendorUnavailable, err, "failed to decode token response")
	}
	if tok.AccessToken == "" {
		return nil, models.NewError(failKind, "token response missing access_token")
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	return &tok, nil
}

// Ensure OAuth implements OAuthClient
var _ interfaces.OAuthClient = (*OAuth)(nil)
