// Package page drives what the story page shows in response to named
// user events.
package page

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alphabot-ai/snooze/internal/apiclient"
	"github.com/alphabot-ai/snooze/internal/model"
)

// Event names a user interaction.
type Event string

const (
	EventNavAll         Event = "nav-all"
	EventNavLogin       Event = "nav-login"
	EventNavSubmit      Event = "nav-submit"
	EventNavFavorites   Event = "nav-favorites"
	EventNavMyStories   Event = "nav-my-stories"
	EventSubmitStory    Event = "submit-story"
	EventToggleFavorite Event = "toggle-favorite"
	EventDeleteStory    Event = "delete-story"
	EventLogin          Event = "login"
	EventSignup         Event = "signup"
	EventLogout         Event = "logout"
)

// Input carries the form values an event may need.
type Input struct {
	StoryID  string `json:"storyId,omitempty"`
	Author   string `json:"author,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
	Name     string `json:"name,omitempty"`
}

// App is the state of one page: the stories, the logged in user (nil
// when logged out) and the committed view.
type App struct {
	API     model.API
	Stories *model.StoryList
	User    *model.User
	View    *View
}

// HandlerFunc handles one event. It updates view, a working copy that is
// committed only when the handler returns nil.
type HandlerFunc func(ctx context.Context, app *App, view *View, in Input) error

// Controller owns an App and dispatches events to handlers. Events are
// handled one at a time.
type Controller struct {
	mu       sync.Mutex
	app      *App
	handlers map[Event]HandlerFunc
	log      *slog.Logger
}

// New creates a controller with an empty story list. Call Start to load
// stories.
func New(api model.API, log *slog.Logger) *Controller {
	return &Controller{
		app: &App{
			API:     api,
			Stories: model.NewStoryList(api, nil),
			View:    newView(),
		},
		handlers: defaultHandlers(),
		log:      log,
	}
}

func defaultHandlers() map[Event]HandlerFunc {
	return map[Event]HandlerFunc{
		EventNavAll:         navAllStories,
		EventNavLogin:       navLogin,
		EventNavSubmit:      navSubmitStory,
		EventNavFavorites:   navFavoriteStories,
		EventNavMyStories:   navMyStories,
		EventSubmitStory:    submitStory,
		EventToggleFavorite: toggleFavorite,
		EventDeleteStory:    deleteStory,
		EventLogin:          login,
		EventSignup:         signup,
		EventLogout:         logout,
	}
}

// Handle registers or replaces the handler for ev.
func (c *Controller) Handle(ev Event, h HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[ev] = h
}

// Known reports whether ev has a handler.
func (c *Controller) Known(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[ev]
	return ok
}

// Start fetches the stories and shows the story list.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := model.FetchStories(ctx, c.app.API)
	if err != nil {
		c.app.View.Error = errorMessage(err)
		c.log.ErrorContext(ctx, "Failed to fetch stories",
			"error", err)
		return err
	}
	c.app.Stories = list

	next := c.app.View.Clone()
	next.Error = ""
	next.HideAll()
	if err := putStoriesOnPage(c.app, next); err != nil {
		return err
	}
	c.app.View = next

	c.log.DebugContext(ctx, "Stories are loaded",
		"count", list.Len())
	return nil
}

// Dispatch runs the handler for ev. Unknown events are ignored. When the
// handler fails the committed view keeps its sections and content and
// only records the error message.
func (c *Controller) Dispatch(ctx context.Context, ev Event, in Input) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handlers[ev]
	if !ok {
		c.log.DebugContext(ctx, "Ignoring unknown event",
			"event", ev)
		return nil
	}

	next := c.app.View.Clone()
	next.Error = ""
	if err := h(ctx, c.app, next, in); err != nil {
		c.app.View.Error = errorMessage(err)
		c.log.WarnContext(ctx, "Event failed",
			"event", ev,
			"storyID", in.StoryID,
			"error", err)
		return err
	}

	c.app.View = next
	c.log.DebugContext(ctx, "Event handled",
		"event", ev,
		"visible", next.VisibleSections())
	return nil
}

// View returns a copy of the committed view.
func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.app.View.Clone()
}

// Username returns the logged in username, or "".
func (c *Controller) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.app.User == nil {
		return ""
	}
	return c.app.User.Username
}

// errorMessage is the text shown to the user for a failed event.
func errorMessage(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	switch {
	case errors.Is(err, apiclient.ErrAuth):
		return "You need to log in to do that."
	case errors.Is(err, apiclient.ErrNotFound):
		return "That story no longer exists."
	case errors.Is(err, apiclient.ErrValidation):
		return "Please check the form and try again."
	case errors.Is(err, apiclient.ErrNetwork):
		return "Could not reach the server."
	default:
		return "Something went wrong. Please try again."
	}
}
