// Package smartthings provides clients for the SmartThings device API and
// its OAuth token endpoint.
package smartthings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/interfaces"
	"github.com/tomfelder/hearth/internal/models"
)

const (
	DefaultBaseURL   = "https://api.smartthings.com/v1"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the SmartThingsClient interface. Tokens are supplied
// per call because every request acts on behalf of a different user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new SmartThings device API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// request performs a rate-limited request and returns the raw JSON body.
// Non-2xx responses become a VendorRejected error carrying the upstream
// status and payload; transport failures and timeouts become
// VendorUnavailable.
func (c *Client) request(ctx context.Context, method, token, path string, body interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("SmartThings API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.WrapError(models.KindVendorUnavailable, err, "failed to reach SmartThings API")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.WrapError(models.KindVendorUnavailable, err, "failed to read SmartThings response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rejectionError(resp.StatusCode, path, raw)
	}

	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(raw), nil
}

// rejectionError builds a VendorRejected error that passes the upstream
// status and payload through without re-interpretation.
func rejectionError(status int, path string, body []byte) *models.BrokerError {
	var data interface{}
	if json.Valid(body) {
		data = json.RawMessage(body)
	} else {
		data = map[string]string{"raw": string(body)}
	}
	return &models.BrokerError{
		Kind:   models.KindVendorRejected,
		Msg:    fmt.Sprintf("SmartThings API error (%d) on %s", status, path),
		Status: status,
		Data:   data,
	}
}

// ListLocations retrieves the caller's locations.
func (c *Client) ListLocations(ctx context.Context, token string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, token, "/locations", nil)
}

// ListDevices retrieves all devices visible to the token.
func (c *Client) ListDevices(ctx context.Context, token string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, token, "/devices", nil)
}

// GetDevice retrieves a device descriptor.
func (c *Client) GetDevice(ctx context.Context, token, deviceID string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, token, "/devices/"+url.PathEscape(deviceID), nil)
}

// GetDeviceStatus retrieves the current attribute values of a device.
func (c *Client) GetDeviceStatus(ctx context.Context, token, deviceID string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, token, "/devices/"+url.PathEscape(deviceID)+"/status", nil)
}

// ExecuteCommands issues capability commands to a device.
func (c *Client) ExecuteCommands(ctx context.Context, token, deviceID string, commands []models.DeviceCommand) (json.RawMessage, error) {
	if len(commands) == 0 {
		return nil, errors.New("at least one command is required")
	}
	body := map[string]interface{}{"commands": commands}
	return c.request(ctx, http.MethodPost, token, "/devices/"+url.PathEscape(deviceID)+"/commands", body)
}

// Get performs a plain GET against an absolute URL (SmartApp CONFIRMATION
// handshake). The response body is discarded; only reachability matters.
func (c *Client) Get(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.WrapError(models.KindVendorUnavailable, err, "failed to call %s", rawURL)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Ensure Client implements SmartThingsClient
var _ interfaces.SmartThingsClient = (*Client)(nil)
