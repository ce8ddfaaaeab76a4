package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/alphabot-ai/snooze/internal/apiclient"
	"github.com/alphabot-ai/snooze/internal/config"
	"github.com/alphabot-ai/snooze/internal/httplog"
	"github.com/alphabot-ai/snooze/internal/model"
	"github.com/alphabot-ai/snooze/internal/page"
	"github.com/alphabot-ai/snooze/internal/ratelimit"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionCookie holds the session id.
const SessionCookie = "snooze_session"

// mutating events count against the per-session rate limit.
var mutating = map[page.Event]bool{
	page.EventSubmitStory:    true,
	page.EventToggleFavorite: true,
	page.EventDeleteStory:    true,
	page.EventLogin:          true,
	page.EventSignup:         true,
}

// Handler holds dependencies for web handlers
type Handler struct {
	api      model.API
	cfg      *config.Config
	limiter  *ratelimit.Limiter
	sessions *registry
	page     *template.Template
	log      *slog.Logger
}

// NewHandler creates a new web handler
func NewHandler(api model.API, cfg *config.Config, log *slog.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		api:      api,
		cfg:      cfg,
		limiter:  ratelimit.New(cfg.EventRateLimit, cfg.RateLimitWindow),
		sessions: newRegistry(),
		page:     tmpl,
		log:      log,
	}, nil
}

// Routes returns the frontend mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("POST /events/{event}", h.Event)
	mux.HandleFunc("GET /health", h.Health)
	return httplog.LogRequests(h.log)(mux)
}

// sectionData is one page section as the template sees it.
type sectionData struct {
	Visible bool
	Content template.HTML
}

// PageData is the data for the page template
type PageData struct {
	View     *page.View
	Sections map[string]sectionData
	BaseURL  string
}

// Home handles GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	view := sess.controller.View()

	// Content negotiation
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}

	data := PageData{
		View:     view,
		Sections: make(map[string]sectionData, len(page.Sections)),
		BaseURL:  h.cfg.BaseURL,
	}
	for _, s := range page.Sections {
		data.Sections[string(s)] = sectionData{
			Visible: view.IsVisible(s),
			Content: view.Content[s],
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.ExecuteTemplate(w, "page", data); err != nil {
		h.log.ErrorContext(r.Context(), "Template error",
			"error", err)
	}
}

// Event handles POST /events/{event}
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	ev := page.Event(r.PathValue("event"))

	// Sessions are only created by GET /.
	sess := h.lookup(r)
	if sess == nil {
		h.log.DebugContext(r.Context(), "Event without session",
			"event", string(ev))
		if wantsJSON(r) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "no session, load / first"})
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sess.start(r.Context())

	if mutating[ev] {
		if ok, retryAfter := h.limiter.Allow(sess.id); !ok {
			secs := strconv.Itoa(int(math.Ceil(retryAfter.Seconds())))
			w.Header().Set("Retry-After", secs)
			if wantsJSON(r) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			http.Error(w, "Too many requests, try again in "+secs+"s", http.StatusTooManyRequests)
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := sess.controller.Dispatch(r.Context(), ev, inputFromForm(r))

	if wantsJSON(r) {
		view := sess.controller.View()
		if err != nil {
			writeJSON(w, apiclient.StatusForError(err), map[string]any{
				"error": view.Error,
				"view":  view,
			})
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.count(),
	})
}

// Sweep drops idle sessions along with their rate limit buckets, then
// clears expired buckets. It returns the number of sessions dropped.
func (h *Handler) Sweep(ctx context.Context) int {
	removed := h.sessions.sweep(h.cfg.SessionIdleTTL)
	for _, id := range removed {
		h.limiter.Forget(id)
	}
	buckets := h.limiter.Cleanup()

	h.log.InfoContext(ctx, "Swept sessions",
		"sessionsRemoved", len(removed),
		"bucketsRemoved", buckets,
		"sessionsLeft", h.sessions.count())
	return len(removed)
}

// lookup returns the session named by the request's cookie, or nil.
func (h *Handler) lookup(r *http.Request) *session {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	return h.sessions.get(c.Value)
}

// session returns the caller's session, creating one and setting the
// cookie when there is none. The session's stories are loaded before it
// is returned.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session {
	sess := h.lookup(r)
	if sess == nil {
		sess = h.sessions.create(page.New(h.api, h.log))
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   strings.HasPrefix(h.cfg.BaseURL, "https://"),
		})
		h.log.InfoContext(r.Context(), "Session created",
			"session", sess.id)
	}

	sess.start(r.Context())
	return sess
}

func inputFromForm(r *http.Request) page.Input {
	return page.Input{
		StoryID:  r.PostFormValue("story_id"),
		Author:   r.PostFormValue("author"),
		Title:    r.PostFormValue("title"),
		URL:      r.PostFormValue("url"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Name:     r.PostFormValue("name"),
	}
}

// Helper functions

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") || r.URL.Query().Get("format") == "json"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
