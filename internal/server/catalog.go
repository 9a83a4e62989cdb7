package server

import (
	"net/http"

	"github.com/tomfelder/hearth/internal/models"
	"github.com/tomfelder/hearth/internal/translate"
)

// RouteDoc describes one API route for the /docs catalog.
type RouteDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Auth        bool   `json:"auth"`
}

// buildRouteCatalog returns the full route catalog served by GET /docs.
func buildRouteCatalog() []RouteDoc {
	docs := []RouteDoc{
		{Method: "GET", Path: "/health", Description: "Liveness probe."},
		{Method: "GET", Path: "/version", Description: "Server version, build, and commit."},
		{Method: "POST", Path: "/users/signup", Description: "Create an account. Returns the API key exactly once."},
		{Method: "GET", Path: "/users/me", Description: "The caller's account and whether a SmartThings binding exists.", Auth: true},
		{Method: "GET", Path: "/oauth/smartthings/authorize", Description: "Start the SmartThings authorization flow. ?redirect=false returns the URL instead of redirecting.", Auth: true},
		{Method: "GET", Path: "/oauth/smartthings/callback", Description: "Vendor redirect target. Identity comes from the signed state parameter."},
		{Method: "GET", Path: "/auth/validate", Description: "Verify the stored binding with a cheap vendor call.", Auth: true},
		{Method: "GET", Path: "/devices", Description: "Raw vendor device list.", Auth: true},
		{Method: "GET", Path: "/devices/{id}", Description: "Raw vendor device descriptor.", Auth: true},
		{Method: "GET", Path: "/devices/{id}/status", Description: "Raw vendor device status.", Auth: true},
		{Method: "GET", Path: "/devices/{id}/capabilities", Description: "Per-component capabilities and the semantic commands they unlock.", Auth: true},
		{Method: "POST", Path: "/devices/{id}/commands", Description: "Raw capability command passthrough.", Auth: true},
		{Method: "POST", Path: "/smartthings/smartapp", Description: "SmartApp lifecycle webhook (vendor-facing, no envelope)."},
	}

	for _, family := range []string{translate.FamilyAircon, translate.FamilyTV} {
		for _, command := range translate.Commands(family) {
			docs = append(docs, RouteDoc{
				Method:      "POST",
				Path:        "/" + family + "/{id}/" + command,
				Description: "Semantic " + family + " command.",
				Auth:        true,
			})
		}
	}
	return docs
}

// handleDocs handles GET /docs. Hidden in production.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.Config.IsProduction() {
		WriteEnvelopeError(w, models.NewError(models.KindNotFound, "not found"))
		return
	}
	WriteEnvelope(w, buildRouteCatalog())
}
