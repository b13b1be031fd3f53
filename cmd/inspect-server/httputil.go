package main

import (
	"encoding/json"
	"net/http"

	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/rs/zerolog/log"
)

// maxRequestBody caps JSON request bodies. Videos arrive base64-encoded
// inside the JSON, so this has to be generous.
const maxRequestBody = 100 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes the classified error as JSON. The internal detail is
// logged, never returned; clients get the status text plus the user-safe
// message.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	log.Error().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("Request failed")
	respondJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": apperr.ClientMessage(err, fallback),
	})
}

// decodeJSON reads and unmarshals a request body with the size cap applied.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error":   http.StatusText(http.StatusMethodNotAllowed),
		"message": "Method Not Allowed",
	})
}
