package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"treasure-hunt/errors"

	"github.com/go-chi/chi/v5"
)

type forgiveRequest struct {
	Address string `json:"address"`
}

// authorize sends the browser to the identity provider.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	url, err := s.Identity.BeginLink(r.URL.Query().Get("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// linkURL returns the provider URL for clients that open it themselves.
func (s *Server) linkURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.Identity.BeginLink(r.URL.Query().Get("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	link, err := s.Identity.CompleteLink(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Log.Debug("Redirecting to client application", "address", link.Address)
	http.Redirect(w, r, s.options.ClientAppURL, http.StatusFound)
}

// lookup answers with the identity under key, "discordId" for the legacy client.
func (s *Server) lookup(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.Identity.Lookup(chi.URLParam(r, "address"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{key: identity})
	}
}

func (s *Server) forgive(w http.ResponseWriter, r *http.Request) {
	var body forgiveRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Address) == "" {
		s.writeError(w, r, fmt.Errorf("%w: address is required", errors.ErrInvalidRequest))
		return
	}
	if err := s.Identity.Unlink(body.Address); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User forgiven"})
}
