package page

import (
	"context"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"

	"github.com/alphabot-ai/snooze/internal/apiclient"
	"github.com/alphabot-ai/snooze/internal/model"
	"github.com/alphabot-ai/snooze/internal/render"
)

const (
	noFavoritesMessage = "No favorites added!"
	noStoriesMessage   = "No stories added by user yet!"
)

var storyURLRe = mustStoryURLRe()

func mustStoryURLRe() *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		panic(err)
	}
	return re
}

// Navigation

func navAllStories(ctx context.Context, app *App, view *View, in Input) error {
	view.HideAll()
	return putStoriesOnPage(app, view)
}

func navLogin(ctx context.Context, app *App, view *View, in Input) error {
	view.HideAll()
	view.Show(SectionLoginForm, SectionSignupForm)
	return nil
}

// navSubmitStory shows the submit form above the story list.
func navSubmitStory(ctx context.Context, app *App, view *View, in Input) error {
	if err := requireUser(app, EventNavSubmit); err != nil {
		return err
	}
	view.HideAll()
	if err := putStoriesOnPage(app, view); err != nil {
		return err
	}
	view.Show(SectionSubmitForm)
	return nil
}

func navFavoriteStories(ctx context.Context, app *App, view *View, in Input) error {
	if err := requireUser(app, EventNavFavorites); err != nil {
		return err
	}
	view.HideAll()
	return putFavoriteStoriesOnPage(app, view)
}

func navMyStories(ctx context.Context, app *App, view *View, in Input) error {
	if err := requireUser(app, EventNavMyStories); err != nil {
		return err
	}
	view.HideAll()
	return putMyStoriesOnPage(app, view)
}

// Story actions

func submitStory(ctx context.Context, app *App, view *View, in Input) error {
	if err := requireUser(app, EventSubmitStory); err != nil {
		return err
	}

	data, err := newStoryFromInput(in)
	if err != nil {
		return err
	}
	if _, err := app.Stories.Add(ctx, app.User, data); err != nil {
		return err
	}

	if err := renderLists(app, view); err != nil {
		return err
	}
	view.HideAll()
	view.Show(SectionAllStories)
	return nil
}

// toggleFavorite flips the favorite state of a story and re-renders the
// lists in place.
func toggleFavorite(ctx context.Context, app *App, view *View, in Input) error {
	if err := requireUser(app, EventToggleFavorite); err != nil {
		return err
	}

	story, err := findStory(app, in.StoryID)
	if err != nil {
		return err
	}

	if app.User.IsFavorite(story) {
		err = app.User.RemoveFavorite(ctx, story)
	} else {
		err = app.User.AddFavorite(ctx, story)
	}
	if err != nil {
		return err
	}

	return renderLists(app, view)
}

// findStory looks in the story list first, then in the user's favorites,
// which can hold stories posted after the list was fetched.
func findStory(app *App, id string) (*model.Story, error) {
	story, err := app.Stories.Get(id)
	if err == nil || app.User == nil {
		return story, err
	}
	for _, s := range app.User.Favorites {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, err
}

func deleteStory(ctx context.Context, app *App, view *View, in Input) error {
	if err := requireUser(app, EventDeleteStory); err != nil {
		return err
	}

	story, err := app.Stories.Get(in.StoryID)
	if err != nil {
		return err
	}
	if err := app.Stories.Remove(ctx, app.User, story); err != nil {
		return err
	}

	if err := renderLists(app, view); err != nil {
		return err
	}
	view.HideAll()
	view.Show(SectionMyStories)
	return nil
}

// Session

func login(ctx context.Context, app *App, view *View, in Input) error {
	if in.Username == "" || in.Password == "" {
		return formError(EventLogin, "Username and password are required.")
	}
	user, err := model.Login(ctx, app.API, in.Username, in.Password)
	if err != nil {
		return err
	}
	return startSession(app, view, user)
}

func signup(ctx context.Context, app *App, view *View, in Input) error {
	if in.Username == "" || in.Password == "" || in.Name == "" {
		return formError(EventSignup, "Name, username and password are required.")
	}
	user, err := model.Signup(ctx, app.API, in.Username, in.Password, in.Name)
	if err != nil {
		return err
	}
	return startSession(app, view, user)
}

func logout(ctx context.Context, app *App, view *View, in Input) error {
	app.User = nil
	view.Nav = loggedOutNav()
	view.HideAll()
	delete(view.Content, SectionFavorites)
	delete(view.Content, SectionMyStories)
	return putStoriesOnPage(app, view)
}

// startSession installs user and does the one-time nav update that
// follows a login.
func startSession(app *App, view *View, user *model.User) error {
	app.User = user
	updateNavOnLogin(app, view)
	view.HideAll()
	return putStoriesOnPage(app, view)
}

func updateNavOnLogin(app *App, view *View) {
	view.Nav = Nav{
		MenuVisible:   true,
		LoginVisible:  false,
		LogoutVisible: true,
		Username:      app.User.Username,
	}
}

// Rendering

func putStoriesOnPage(app *App, view *View) error {
	markup, err := render.StoryList(app.Stories.Stories(), render.ViewerFor(app.User, false), "")
	if err != nil {
		return err
	}
	view.Content[SectionAllStories] = markup
	view.Show(SectionAllStories)
	return nil
}

func putFavoriteStoriesOnPage(app *App, view *View) error {
	if err := renderFavorites(app, view); err != nil {
		return err
	}
	view.Show(SectionFavorites)
	return nil
}

func putMyStoriesOnPage(app *App, view *View) error {
	if err := renderMyStories(app, view); err != nil {
		return err
	}
	view.Show(SectionMyStories)
	return nil
}

func renderFavorites(app *App, view *View) error {
	markup, err := render.StoryList(app.User.Favorites, render.ViewerFor(app.User, false), noFavoritesMessage)
	if err != nil {
		return err
	}
	view.Content[SectionFavorites] = markup
	return nil
}

func renderMyStories(app *App, view *View) error {
	markup, err := render.StoryList(app.User.OwnStories, render.ViewerFor(app.User, true), noStoriesMessage)
	if err != nil {
		return err
	}
	view.Content[SectionMyStories] = markup
	return nil
}

// renderLists refreshes the markup of every list without changing which
// sections are visible.
func renderLists(app *App, view *View) error {
	markup, err := render.StoryList(app.Stories.Stories(), render.ViewerFor(app.User, false), "")
	if err != nil {
		return err
	}
	view.Content[SectionAllStories] = markup

	if app.User == nil {
		return nil
	}
	if err := renderFavorites(app, view); err != nil {
		return err
	}
	return renderMyStories(app, view)
}

// Helpers

func requireUser(app *App, ev Event) error {
	if app.User == nil {
		return &apiclient.Error{Op: string(ev), Kind: apiclient.ErrAuth, Message: "You need to log in to do that."}
	}
	return nil
}

func formError(ev Event, msg string) error {
	return &apiclient.Error{Op: string(ev), Kind: apiclient.ErrValidation, Message: msg}
}

func newStoryFromInput(in Input) (apiclient.NewStory, error) {
	data := apiclient.NewStory{
		Author: strings.TrimSpace(in.Author),
		Title:  strings.TrimSpace(in.Title),
		URL:    strings.TrimSpace(in.URL),
	}
	if data.Author == "" || data.Title == "" || data.URL == "" {
		return data, formError(EventSubmitStory, "Author, title and URL are required.")
	}
	if !isStoryURL(data.URL) {
		return data, formError(EventSubmitStory, "URL must be a full http or https link.")
	}
	return data, nil
}

func isStoryURL(s string) bool {
	loc := storyURLRe.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
