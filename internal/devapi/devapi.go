// Package devapi serves the story REST API over a local sqlite store. It
// backs the frontend during development and the client integration tests.
package devapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alphabot-ai/snooze/internal/auth"
	"github.com/alphabot-ai/snooze/internal/httplog"
	"github.com/alphabot-ai/snooze/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers
type Handler struct {
	store store.Store
	auth  *auth.Service
	log   *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(s store.Store, authSvc *auth.Service, log *slog.Logger) *Handler {
	return &Handler{
		store: s,
		auth:  authSvc,
		log:   log,
	}
}

// Routes returns the API mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /stories", h.ListStories)
	mux.HandleFunc("POST /stories", h.CreateStory)
	mux.HandleFunc("GET /stories/{id}", h.GetStory)
	mux.HandleFunc("DELETE /stories/{id}", h.DeleteStory)

	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /users/{username}", h.GetUser)
	mux.HandleFunc("POST /users/{username}/favorites/{storyId}", h.AddFavorite)
	mux.HandleFunc("DELETE /users/{username}/favorites/{storyId}", h.RemoveFavorite)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return httplog.LogRequests(h.log)(mux)
}

// Response helpers

type ErrorBody struct {
	Status  int    `json:"status"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Status:  status,
		Title:   http.StatusText(status),
		Message: message,
	}})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.ErrorContext(r.Context(), msg,
		"error", err,
		"path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "database error")
}

// Request helpers

// decodeJSON reads an optional JSON body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type tokenRequest struct {
	Token string `json:"token"`
}

// requestToken prefers the body token and falls back to ?token=.
func requestToken(r *http.Request, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	return r.URL.Query().Get("token")
}

// authorize resolves the token and, when username is set, checks that the
// token belongs to that user. It writes the error response itself.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, tokenStr, username string) (*store.Token, bool) {
	token, err := h.auth.ValidateToken(r.Context(), tokenStr)
	if err != nil {
		h.internalError(w, r, "Failed to validate token", err)
		return nil, false
	}
	if token == nil {
		writeError(w, http.StatusUnauthorized, "A valid token is required.")
		return nil, false
	}
	if username != "" && token.Username != username {
		writeError(w, http.StatusForbidden, "You may only act on your own account.")
		return nil, false
	}
	return token, true
}
