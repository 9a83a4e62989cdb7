package server

import (
	"net/http"

	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/translate"
)

// --- Device passthrough handlers ---

// handleDeviceList handles GET /devices — the raw vendor device list.
func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
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

	devices, err := s.app.Devices.ListDevices(r.Context(), token)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}
	WriteEnvelope(w, devices)
}

// handleDeviceGet handles GET /devices/{id}.
func (s *Server) handleDeviceGet(w http.ResponseWriter, r *http.Request, deviceID string) {
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

	device, err := s.app.Devices.GetDevice(r.Context(), token, deviceID)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}
	WriteEnvelope(w, device)
}

// handleDeviceStatus handles GET /devices/{id}/status.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request, deviceID string) {
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

	status, err := s.app.Devices.GetDeviceStatus(r.Context(), token, deviceID)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}
	WriteEnvelope(w, status)
}

// handleDeviceCapabilities handles GET /devices/{id}/capabilities — the
// device descriptor condensed into per-component capabilities and the
// semantic commands they unlock. Read-only pre-check before controlling
// an unfamiliar device.
func (s *Server) handleDeviceCapabilities(w http.ResponseWriter, r *http.Request, deviceID string) {
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

	device, err := s.app.Devices.GetDevice(r.Context(), token, deviceID)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	WriteEnvelope(w, map[string]interface{}{
		"device_id":  deviceID,
		"components": translate.SummarizeCapabilities(device),
	})
}

// handleDeviceCommands handles POST /devices/{id}/commands — raw command
// passthrough for callers that already speak the vendor's capability
// vocabulary.
func (s *Server) handleDeviceCommands(w http.ResponseWriter, r *http.Request, deviceID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	uc := s.requireUser(w, r)
	if uc == nil {
		return
	}

	var req struct {
		Commands []models.DeviceCommand `json:"commands"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Commands) == 0 {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "commands must not be empty"))
		return
	}
	for i := range req.Commands {
		if req.Commands[i].Capability == "" || req.Commands[i].Command == "" {
			WriteEnvelopeError(w, models.NewError(models.KindValidation, "commands[%d]: capability and command are required", i))
			return
		}
		if req.Commands[i].Component == "" {
			req.Commands[i].Component = translate.DefaultComponent
		}
	}

	token, err := s.resolveToken(r, uc)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	result, err := s.app.Devices.ExecuteCommands(r.Context(), token, deviceID, req.Commands)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}
	WriteEnvelope(w, result)
}
