package devapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/alphabot-ai/snooze/internal/store"
)

type NewStory struct {
	Author string `json:"author"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

type CreateStoryRequest struct {
	Token string   `json:"token"`
	Story NewStory `json:"story"`
}

type StoryResponse struct {
	Message string       `json:"message,omitempty"`
	Story   *store.Story `json:"story"`
}

type ListStoriesResponse struct {
	Stories []*store.Story `json:"stories"`
}

// ListStories handles GET /stories
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.store.ListStories(r.Context())
	if err != nil {
		h.internalError(w, r, "Failed to list stories", err)
		return
	}

	writeJSON(w, http.StatusOK, ListStoriesResponse{Stories: stories})
}

// GetStory handles GET /stories/{id}
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	story, err := h.store.GetStory(r.Context(), r.PathValue("id"))
	if err != nil {
		h.internalError(w, r, "Failed to get story", err)
		return
	}
	if story == nil {
		writeError(w, http.StatusNotFound, "No story with that id.")
		return
	}

	writeJSON(w, http.StatusOK, StoryResponse{Story: story})
}

// CreateStory handles POST /stories
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	token, ok := h.authorize(w, r, requestToken(r, req.Token), "")
	if !ok {
		return
	}

	ns := NewStory{
		Author: strings.TrimSpace(req.Story.Author),
		Title:  strings.TrimSpace(req.Story.Title),
		URL:    strings.TrimSpace(req.Story.URL),
	}
	if ns.Author == "" || ns.Title == "" || ns.URL == "" {
		writeError(w, http.StatusBadRequest, "Stories require an author, a title and a url.")
		return
	}
	if !validStoryURL(ns.URL) {
		writeError(w, http.StatusBadRequest, "The story url must be an http or https URL.")
		return
	}

	story := &store.Story{
		Username: token.Username,
		Author:   ns.Author,
		Title:    ns.Title,
		URL:      ns.URL,
	}
	if err := h.store.CreateStory(r.Context(), story); err != nil {
		h.internalError(w, r, "Failed to create story", err)
		return
	}

	h.log.InfoContext(r.Context(), "Story created",
		"storyId", story.ID,
		"username", story.Username)
	writeJSON(w, http.StatusCreated, StoryResponse{Story: story})
}

// DeleteStory handles DELETE /stories/{id}
func (h *Handler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	token, ok := h.authorize(w, r, requestToken(r, req.Token), "")
	if !ok {
		return
	}

	story, err := h.store.GetStory(r.Context(), r.PathValue("id"))
	if err != nil {
		h.internalError(w, r, "Failed to get story", err)
		return
	}
	if story == nil {
		writeError(w, http.StatusNotFound, "No story with that id.")
		return
	}
	if story.Username != token.Username {
		writeError(w, http.StatusForbidden, "Only the story's poster may delete it.")
		return
	}

	if err := h.store.DeleteStory(r.Context(), story.ID); err != nil {
		h.internalError(w, r, "Failed to delete story", err)
		return
	}

	h.log.InfoContext(r.Context(), "Story deleted",
		"storyId", story.ID,
		"username", token.Username)
	writeJSON(w, http.StatusOK, StoryResponse{Message: "Deleted story!", Story: story})
}

func validStoryURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
