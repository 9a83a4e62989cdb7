package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/translate"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/docs", s.handleDocs)
	mux.HandleFunc("/shutdown", s.handleShutdown)

	// Accounts
	mux.HandleFunc("/users/signup", s.handleUserSignup)
	mux.HandleFunc("/users/me", s.handleUserMe)

	// SmartThings authorization
	mux.HandleFunc("/oauth/smartthings/authorize", s.handleOAuthAuthorize)
	mux.HandleFunc("/oauth/smartthings/callback", s.handleOAuthCallback)
	mux.HandleFunc("/auth/validate", s.handleAuthValidate)

	// Device passthrough
	mux.HandleFunc("/devices", s.handleDeviceList)
	mux.HandleFunc("/devices/", s.routeDevices)

	// Semantic control
	mux.HandleFunc("/aircon/", s.routeAircon)
	mux.HandleFunc("/tv/", s.routeTV)

	// SmartApp lifecycle webhook (raw vendor shapes, never the envelope)
	mux.HandleFunc("/smartthings/smartapp", s.handleSmartApp)
}

// routeDevices dispatches /devices/{id}[/sub] to the appropriate handler.
func (s *Server) routeDevices(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/devices/")
	if path == "" {
		s.handleDeviceList(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	deviceID := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleDeviceGet(w, r, deviceID)
	case "status":
		s.handleDeviceStatus(w, r, deviceID)
	case "capabilities":
		s.handleDeviceCapabilities(w, r, deviceID)
	case "commands":
		s.handleDeviceCommands(w, r, deviceID)
	default:
		WriteEnvelopeError(w, models.NewError(models.KindNotFound, "not found"))
	}
}

// routeAircon dispatches /aircon/{id}/{command}.
func (s *Server) routeAircon(w http.ResponseWriter, r *http.Request) {
	s.routeControl(w, r, translate.FamilyAircon, "/aircon/")
}

// routeTV dispatches /tv/{id}/{command}.
func (s *Server) routeTV(w http.ResponseWriter, r *http.Request) {
	s.routeControl(w, r, translate.FamilyTV, "/tv/")
}

func (s *Server) routeControl(w http.ResponseWriter, r *http.Request, family, prefix string) {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		WriteEnvelopeError(w, models.NewError(models.KindNotFound, "not found"))
		return
	}
	s.handleControl(w, r, family, parts[0], parts[1])
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteEnvelope(w, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteEnvelope(w, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteEnvelopeError(w, models.NewError(models.KindNotFound, "not found"))
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	WriteEnvelope(w, map[string]string{"status": "shutting down"})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
