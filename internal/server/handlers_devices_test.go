package server

import (
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// deviceVendor fakes the device API surface and records what it was sent.
type deviceVendor struct {
	mu          sync.Mutex
	lastAuth    string
	lastCommand []byte
}

func (v *deviceVendor) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		v.mu.Lock()
		v.lastAuth = r.Header.Get("Authorization")
		v.mu.Unlock()
	}

	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"deviceId":"d1","label":"Living Room TV"}]}`))
	})
	mux.HandleFunc("/devices/d1", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"deviceId":"d1","components":[{"id":"main","capabilities":[{"id":"switch"},{"id":"audioVolume"},{"id":"remoteControl"}]}]}`))
	})
	mux.HandleFunc("/devices/d1/status", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"components":{"main":{"switch":{"switch":{"value":"on"}}}}}`))
	})
	mux.HandleFunc("/devices/d1/commands", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		body, _ := io.ReadAll(r.Body)
		v.mu.Lock()
		v.lastCommand = body
		v.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"status":"ACCEPTED"}]}`))
	})
	return mux
}

func (v *deviceVendor) auth() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastAuth
}

func (v *deviceVendor) command() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return string(v.lastCommand)
}

func TestDeviceListPassthrough(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-d")

	rec := doRequest(t, srv, http.MethodGet, "/devices", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer tok-d", vendor.auth())

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "d1", gjson.GetBytes(env.Data, "items.0.deviceId").String())
}

func TestDeviceListNotBound(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	_, apiKey := signupUser(t, srv, "")

	rec := doRequest(t, srv, http.MethodGet, "/devices", nil, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 412, env.Code)
}

func TestTokenOverrideHeader(t *testing.T) {
	vendor := &deviceVendor{}
	srv, _ := newTestServer(t, vendor.handler())
	_, apiKey := signupUser(t, srv, "")

	// No stored binding, but a per-request token carries the call.
	rec := doRequest(t, srv, http.MethodGet, "/devices", nil, map[string]string{
		"X-API-Key":          apiKey,
		"X-SmartThings-Token": "override-tok",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer override-tok", vendor.auth())
}

func TestPATFallback(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	a.Config.SmartThings.PAT = "pat-tok"
	_, apiKey := signupUser(t, srv, "")

	rec := doRequest(t, srv, http.MethodGet, "/devices", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer pat-tok", vendor.auth())
}

func TestDeviceStatusPassthrough(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-d")

	rec := doRequest(t, srv, http.MethodGet, "/devices/d1/status", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "on", gjson.GetBytes(env.Data, "components.main.switch.switch.value").String())
}

func TestDeviceCapabilitiesSummary(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-d")

	rec := doRequest(t, srv, http.MethodGet, "/devices/d1/capabilities", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "d1", gjson.GetBytes(env.Data, "device_id").String())
	assert.Equal(t, "main", gjson.GetBytes(env.Data, "components.0.component").String())

	tvCommands := gjson.GetBytes(env.Data, "components.0.commands.tv").String()
	assert.Contains(t, tvCommands, "power")
	assert.Contains(t, tvCommands, "key")
}

func TestDeviceCommandsPassthrough(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-d")

	body := map[string]interface{}{
		"commands": []map[string]interface{}{
			{"capability": "switch", "command": "off"},
		},
	}
	rec := doRequest(t, srv, http.MethodPost, "/devices/d1/commands", body, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The default component is filled in before the command goes upstream.
	sent := vendor.command()
	assert.Equal(t, "main", gjson.Get(sent, "commands.0.component").String())
	assert.Equal(t, "switch", gjson.Get(sent, "commands.0.capability").String())
	assert.Equal(t, "off", gjson.Get(sent, "commands.0.command").String())
}

func TestDeviceCommandsValidation(t *testing.T) {
	srv, a := newTestServer(t, nil)
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-d")

	rec := doRequest(t, srv, http.MethodPost, "/devices/d1/commands",
		map[string]interface{}{"commands": []interface{}{}}, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/devices/d1/commands",
		map[string]interface{}{"commands": []map[string]interface{}{{"capability": "switch"}}},
		map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorRejectionPassesStatusThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"code":"ConstraintViolationError"}}`))
	})

	srv, a := newTestServer(t, mux)
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-d")

	rec := doRequest(t, srv, http.MethodGet, "/devices", nil, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, 422, env.Code)
	assert.Equal(t, "ConstraintViolationError", gjson.GetBytes(env.Data, "error.code").String())
}

func TestUnknownDeviceSubpath(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	_, apiKey := signupUser(t, srv, "")

	rec := doRequest(t, srv, http.MethodGet, "/devices/d1/bogus", nil, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
