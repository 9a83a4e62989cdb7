package server

import (
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/tomfelder/hearth/internal/models"
)

// handleSmartApp handles POST /smartthings/smartapp — the vendor-facing
// lifecycle webhook. Responses here must be the vendor's own JSON shapes,
// never the client envelope: the caller is SmartThings, not a broker
// client.
func (s *Server) handleSmartApp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	if !gjson.ValidBytes(body) {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	lifecycle := gjson.GetBytes(body, "lifecycle").String()
	s.logger.Info().Str("lifecycle", lifecycle).Msg("SmartApp lifecycle received")

	switch lifecycle {
	case models.LifecyclePing:
		// Echo the challenge back verbatim.
		challenge := gjson.GetBytes(body, "pingData.challenge").String()
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"pingData": map[string]string{"challenge": challenge},
		})

	case models.LifecycleConfirmation:
		// The vendor expects the app to GET its confirmationUrl within a
		// short window. Best effort: a failure is logged, not surfaced,
		// since the vendor retries the whole confirmation.
		confirmationURL := gjson.GetBytes(body, "confirmationData.confirmationUrl").String()
		if confirmationURL != "" {
			if err := s.app.Devices.Get(r.Context(), confirmationURL); err != nil {
				s.logger.Warn().Err(err).Msg("Confirmation URL fetch failed")
			}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{})

	default:
		// CONFIGURATION, INSTALL, UPDATE, UNINSTALL, EVENT and anything
		// newer are acknowledged without action; the broker pulls state on
		// demand rather than reacting to events.
		WriteJSON(w, http.StatusOK, map[string]interface{}{})
	}
}
