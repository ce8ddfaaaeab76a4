package devapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alphabot-ai/snooze/internal/auth"
	"github.com/alphabot-ai/snooze/internal/store"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type AuthRequest struct {
	User Credentials `json:"user"`
}

// UserRecord is a user with its favorites and own stories inlined.
type UserRecord struct {
	Username  string         `json:"username"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"createdAt"`
	Favorites []*store.Story `json:"favorites"`
	Stories   []*store.Story `json:"stories"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *UserRecord `json:"user"`
}

type UserResponse struct {
	Message string      `json:"message,omitempty"`
	User    *UserRecord `json:"user"`
}

// Signup handles POST /signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, token, err := h.auth.Signup(r.Context(), req.User.Username, req.User.Password, req.User.Name)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "That username is already taken.")
		case errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidPassword),
			errors.Is(err, auth.ErrInvalidName):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, r, "Failed to sign up", err)
		}
		return
	}

	record, err := h.userRecord(r.Context(), user)
	if err != nil {
		h.internalError(w, r, "Failed to load user", err)
		return
	}

	h.log.InfoContext(r.Context(), "User signed up",
		"username", user.Username)
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token.Token, User: record})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.User.Username, req.User.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		h.internalError(w, r, "Failed to log in", err)
		return
	}

	record, err := h.userRecord(r.Context(), user)
	if err != nil {
		h.internalError(w, r, "Failed to load user", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token.Token, User: record})
}

// GetUser handles GET /users/{username}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if _, ok := h.authorize(w, r, requestToken(r, ""), username); !ok {
		return
	}

	h.respondWithUser(w, r, username, "")
}

// AddFavorite handles POST /users/{username}/favorites/{storyId}
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, h.store.AddFavorite, "Favorite added!")
}

// RemoveFavorite handles DELETE /users/{username}/favorites/{storyId}
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, h.store.RemoveFavorite, "Favorite removed!")
}

func (h *Handler) favorite(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, username, storyID string) error, message string) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	username := r.PathValue("username")
	if _, ok := h.authorize(w, r, requestToken(r, req.Token), username); !ok {
		return
	}

	storyID := r.PathValue("storyId")
	story, err := h.store.GetStory(r.Context(), storyID)
	if err != nil {
		h.internalError(w, r, "Failed to get story", err)
		return
	}
	if story == nil {
		writeError(w, http.StatusNotFound, "No story with that id.")
		return
	}

	if err := apply(r.Context(), username, storyID); err != nil {
		h.internalError(w, r, "Failed to update favorites", err)
		return
	}

	h.respondWithUser(w, r, username, message)
}

func (h *Handler) respondWithUser(w http.ResponseWriter, r *http.Request, username, message string) {
	user, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		h.internalError(w, r, "Failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "No user with that username.")
		return
	}

	record, err := h.userRecord(r.Context(), user)
	if err != nil {
		h.internalError(w, r, "Failed to load user", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Message: message, User: record})
}

func (h *Handler) userRecord(ctx context.Context, user *store.User) (*UserRecord, error) {
	favorites, err := h.store.ListFavorites(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	stories, err := h.store.ListStoriesByUser(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	return &UserRecord{
		Username:  user.Username,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		Favorites: favorites,
		Stories:   stories,
	}, nil
}
