package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/tomfelder/hearth/internal/models"
)

// Envelope is the uniform response shape for every API endpoint except the
// SmartApp webhook. Code mirrors the HTTP status; 200 means success.
type Envelope struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteEnvelope writes a success envelope.
func WriteEnvelope(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Envelope{Code: 200, Msg: "success", Data: data})
}

// WriteEnvelopeError maps an error onto the envelope. BrokerError kinds
// carry their own stable code, which doubles as the HTTP status; anything
// else is an opaque 500.
func WriteEnvelopeError(w http.ResponseWriter, err error) {
	var be *models.BrokerError
	if errors.As(err, &be) {
		code := be.Code()
		WriteJSON(w, code, Envelope{Code: code, Msg: be.Msg, Data: be.Data})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, Envelope{Code: 500, Msg: "internal server error"})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 envelope and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteJSON(w, http.StatusMethodNotAllowed, Envelope{Code: 405, Msg: "method not allowed"})
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 envelope if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "request body is required"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// DecodeArgs decodes an optional JSON object body into a map. An absent or
// empty body yields an empty map; commands without arguments allow it.
func DecodeArgs(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	args := map[string]interface{}{}
	if r.Body == nil {
		return args, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		if err == io.EOF {
			return args, true
		}
		WriteEnvelopeError(w, models.NewError(models.KindValidation, "invalid JSON: %s", err.Error()))
		return nil, false
	}
	return args, true
}
