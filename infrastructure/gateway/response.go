package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"treasure-hunt/errors"
)

type errorBody struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	ExistingAddress string `json:"existingAddress,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Writing JSON response failed", "error", err)
	}
}

// writeError maps a service failure to its status and machine-readable body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	body := errorBody{Error: err.Error(), Code: errors.Code(err)}
	if existing, ok := errors.ExistingAddress(err); ok {
		body.ExistingAddress = existing
	}
	if status >= http.StatusInternalServerError {
		s.Log.Error("Request failed", "path", r.URL.Path, "code", body.Code, "error", err)
		// Internal details stay in the log
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON body of at most 1 MiB.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", errors.ErrInvalidRequest)
	}
	return nil
}
