package server

import (
	"net/http"

	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/translate"
)

// handleControl executes one semantic command against a device. Arguments
// come from the JSON body; the optional payload_style field tunes the
// wire shape for commands whose device implementations disagree.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request, family, deviceID, command string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	uc := s.requireUser(w, r)
	if uc == nil {
		return
	}

	args, ok := DecodeArgs(w, r)
	if !ok {
		return
	}

	style := models.PayloadStyle("")
	if v, ok := args["payload_style"].(string); ok {
		style = models.PayloadStyle(v)
	}

	cmd, err := translate.Translate(family, command, args, style)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	token, err := s.resolveToken(r, uc)
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	result, err := s.app.Devices.ExecuteCommands(r.Context(), token, deviceID, []models.DeviceCommand{*cmd})
	if err != nil {
		WriteEnvelopeError(w, err)
		return
	}

	s.logger.Debug().
		Str("user_id", uc.UserID).
		Str("device_id", deviceID).
		Str("family", family).
		Str("command", command).
		Msg("Device command executed")

	WriteEnvelope(w, map[string]interface{}{
		"device_id": deviceID,
		"executed": map[string]interface{}{
			"component":  cmd.Component,
			"capability": cmd.Capability,
			"command":    cmd.Command,
			"arguments":  cmd.Arguments,
		},
		"result": result,
	})
}
