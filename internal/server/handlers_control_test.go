package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTVKeyCommand(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-tv")

	rec := doRequest(t, srv, http.MethodPost, "/tv/d1/key",
		map[string]interface{}{"key": "KEY_VOLUP"}, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent := vendor.command()
	assert.Equal(t, "remoteControl", gjson.Get(sent, "commands.0.capability").String())
	assert.Equal(t, "send", gjson.Get(sent, "commands.0.command").String())
	assert.Equal(t, "KEY_VOLUP", gjson.Get(sent, "commands.0.arguments.0.keyCode").String())

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "send", gjson.GetBytes(env.Data, "executed.command").String())
	assert.Equal(t, "ACCEPTED", gjson.GetBytes(env.Data, "result.results.0.status").String())
}

func TestTVKeyStringPayloadStyle(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-tv")

	rec := doRequest(t, srv, http.MethodPost, "/tv/d1/key",
		map[string]interface{}{"key": "KEY_VOLUP", "payload_style": "string"},
		map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent := vendor.command()
	assert.Equal(t, "KEY_VOLUP", gjson.Get(sent, "commands.0.arguments.0").String())
}

func TestTVPowerAndVolume(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-tv")

	rec := doRequest(t, srv, http.MethodPost, "/tv/d1/power",
		map[string]interface{}{"on": true}, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "on", gjson.Get(vendor.command(), "commands.0.command").String())

	rec = doRequest(t, srv, http.MethodPost, "/tv/d1/volume",
		map[string]interface{}{"level": 30}, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "setVolume", gjson.Get(vendor.command(), "commands.0.command").String())
	assert.Equal(t, int64(30), gjson.Get(vendor.command(), "commands.0.arguments.0").Int())
}

func TestAirconTemperature(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-ac")

	rec := doRequest(t, srv, http.MethodPost, "/aircon/d1/temperature",
		map[string]interface{}{"celsius": 22.5}, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent := vendor.command()
	assert.Equal(t, "thermostatCoolingSetpoint", gjson.Get(sent, "commands.0.capability").String())
	assert.Equal(t, "setCoolingSetpoint", gjson.Get(sent, "commands.0.command").String())
	assert.Equal(t, 22.5, gjson.Get(sent, "commands.0.arguments.0").Float())
}

func TestUnsupportedCommandNeverReachesVendor(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-tv")

	rec := doRequest(t, srv, http.MethodPost, "/tv/d1/defrost",
		map[string]interface{}{}, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 422, env.Code)
	assert.Empty(t, vendor.command())
}

func TestControlValidationFailsBeforeVendor(t *testing.T) {
	vendor := &deviceVendor{}
	srv, a := newTestServer(t, vendor.handler())
	userID, apiKey := signupUser(t, srv, "")
	bindUser(t, a, userID, "tok-ac")

	// Out-of-range setpoint.
	rec := doRequest(t, srv, http.MethodPost, "/aircon/d1/temperature",
		map[string]interface{}{"celsius": 50}, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing argument.
	rec = doRequest(t, srv, http.MethodPost, "/tv/d1/power",
		map[string]interface{}{}, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, vendor.command())
}

func TestControlRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/tv/d1/power",
		map[string]interface{}{"on": true}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
