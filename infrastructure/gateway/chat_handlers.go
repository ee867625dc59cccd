package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"treasure-hunt/domain"
	"treasure-hunt/errors"
)

type postChatRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

func (s *Server) listChat(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Chat.List(domain.Page{Offset: offset, Limit: limit}))
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var body postChatRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	message, err := s.Chat.Post(r.Context(), body.User, body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) searchChat(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	found, err := s.Chat.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// queryInt parses an optional non-negative integer parameter; absent is 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errors.ErrInvalidRequest, name)
	}
	return value, nil
}
