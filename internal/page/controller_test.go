package page

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/alphabot-ai/snooze/internal/apiclient"
	"github.com/alphabot-ai/snooze/internal/model/modeltest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupController(t *testing.T) (*Controller, *modeltest.FakeAPI) {
	t.Helper()

	api := modeltest.NewFakeAPI()
	api.AddUser("alice", "secret", "Alice")
	api.Seed("bob", "Story A", "https://a.example.com")
	api.Seed("bob", "Story B", "https://b.example.com")

	c := New(api, testLogger())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c, api
}

func loginAlice(t *testing.T, c *Controller) {
	t.Helper()
	err := c.Dispatch(context.Background(), EventLogin, Input{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("login error = %v", err)
	}
}

func sectionDoc(t *testing.T, v *View, s Section) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(v.Content[s])))
	if err != nil {
		t.Fatalf("failed to parse %s: %v", s, err)
	}
	return doc
}

func storyIDs(t *testing.T, v *View, s Section) []string {
	t.Helper()
	var ids []string
	sectionDoc(t, v, s).Find("li").Each(func(_ int, sel *goquery.Selection) {
		ids = append(ids, sel.AttrOr("id", ""))
	})
	return ids
}

func assertVisible(t *testing.T, v *View, want ...Section) {
	t.Helper()
	expected := newView()
	expected.Show(want...)
	if got := v.VisibleSections(); !reflect.DeepEqual(got, expected.VisibleSections()) {
		t.Errorf("visible = %v, want %v", got, expected.VisibleSections())
	}
}

func TestStartShowsAllStories(t *testing.T) {
	c, _ := setupController(t)
	v := c.View()

	assertVisible(t, v, SectionAllStories)
	if ids := storyIDs(t, v, SectionAllStories); len(ids) != 2 {
		t.Errorf("stories rendered = %d, want 2", len(ids))
	}
	if sectionDoc(t, v, SectionAllStories).Find(".star").Length() != 0 {
		t.Error("logged out page should not show stars")
	}
	if !v.Nav.LoginVisible || v.Nav.MenuVisible || v.Nav.LogoutVisible {
		t.Errorf("nav = %+v, want logged out nav", v.Nav)
	}
}

func TestStartFailure(t *testing.T) {
	api := modeltest.NewFakeAPI()
	api.FailOn(modeltest.OpListStories, &apiclient.Error{Op: "list stories", Kind: apiclient.ErrNetwork})

	c := New(api, testLogger())
	if err := c.Start(context.Background()); !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("Start() error = %v, want ErrNetwork", err)
	}
	if c.View().Error == "" {
		t.Error("view should carry an error message")
	}

	// The page keeps working with an empty list.
	if err := c.Dispatch(context.Background(), EventNavAll, Input{}); err != nil {
		t.Errorf("nav-all error = %v", err)
	}
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  []Section
	}{
		{"all stories", EventNavAll, []Section{SectionAllStories}},
		{"login", EventNavLogin, []Section{SectionLoginForm, SectionSignupForm}},
		{"submit", EventNavSubmit, []Section{SectionAllStories, SectionSubmitForm}},
		{"favorites", EventNavFavorites, []Section{SectionFavorites}},
		{"my stories", EventNavMyStories, []Section{SectionMyStories}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := setupController(t)
			loginAlice(t, c)

			if err := c.Dispatch(context.Background(), tt.event, Input{}); err != nil {
				t.Fatalf("Dispatch(%s) error = %v", tt.event, err)
			}
			assertVisible(t, c.View(), tt.want...)
		})
	}
}

func TestNavRequiresLogin(t *testing.T) {
	for _, ev := range []Event{EventNavSubmit, EventNavFavorites, EventNavMyStories, EventToggleFavorite, EventDeleteStory, EventSubmitStory} {
		t.Run(string(ev), func(t *testing.T) {
			c, _ := setupController(t)
			before := c.View()

			err := c.Dispatch(context.Background(), ev, Input{StoryID: "story-2"})
			if !errors.Is(err, apiclient.ErrAuth) {
				t.Fatalf("error = %v, want ErrAuth", err)
			}

			after := c.View()
			if !reflect.DeepEqual(after.Visible, before.Visible) {
				t.Errorf("visible changed from %v to %v", before.VisibleSections(), after.VisibleSections())
			}
			if after.Error == "" {
				t.Error("error message should be recorded")
			}
		})
	}
}

func TestUnknownEventIsNoop(t *testing.T) {
	c, api := setupController(t)
	before := c.View()
	calls := len(api.Calls())

	if err := c.Dispatch(context.Background(), Event("bogus"), Input{}); err != nil {
		t.Fatalf("Dispatch(bogus) error = %v", err)
	}
	if !reflect.DeepEqual(c.View(), before) {
		t.Error("unknown event should not change the view")
	}
	if len(api.Calls()) != calls {
		t.Error("unknown event should not call the API")
	}
	if c.Known(Event("bogus")) {
		t.Error("bogus event should not be known")
	}
}

func TestLoginUpdatesNav(t *testing.T) {
	c, _ := setupController(t)
	if err := c.Dispatch(context.Background(), EventNavLogin, Input{}); err != nil {
		t.Fatal(err)
	}
	loginAlice(t, c)

	v := c.View()
	want := Nav{MenuVisible: true, LogoutVisible: true, Username: "alice"}
	if v.Nav != want {
		t.Errorf("nav = %+v, want %+v", v.Nav, want)
	}
	assertVisible(t, v, SectionAllStories)
	if sectionDoc(t, v, SectionAllStories).Find(".star").Length() != 2 {
		t.Error("logged in page should show a star per story")
	}
	if c.Username() != "alice" {
		t.Errorf("Username() = %q", c.Username())
	}
}

func TestLoginFailureKeepsForms(t *testing.T) {
	c, _ := setupController(t)
	ctx := context.Background()
	if err := c.Dispatch(ctx, EventNavLogin, Input{}); err != nil {
		t.Fatal(err)
	}

	err := c.Dispatch(ctx, EventLogin, Input{Username: "alice", Password: "wrong"})
	if !errors.Is(err, apiclient.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	v := c.View()
	assertVisible(t, v, SectionLoginForm, SectionSignupForm)
	if v.Nav.MenuVisible {
		t.Error("nav should stay logged out")
	}

	err = c.Dispatch(ctx, EventLogin, Input{Username: "alice"})
	if !errors.Is(err, apiclient.ErrValidation) {
		t.Errorf("missing password error = %v, want ErrValidation", err)
	}
}

func TestSignup(t *testing.T) {
	c, _ := setupController(t)

	err := c.Dispatch(context.Background(), EventSignup, Input{Username: "carol", Password: "pw", Name: "Carol"})
	if err != nil {
		t.Fatalf("signup error = %v", err)
	}
	if c.View().Nav.Username != "carol" {
		t.Errorf("nav username = %q, want carol", c.View().Nav.Username)
	}
}

func TestSubmitStory(t *testing.T) {
	c, api := setupController(t)
	loginAlice(t, c)
	ctx := context.Background()

	if err := c.Dispatch(ctx, EventNavSubmit, Input{}); err != nil {
		t.Fatal(err)
	}
	in := Input{Author: "X", Title: "T", URL: "http://example.com"}
	if err := c.Dispatch(ctx, EventSubmitStory, in); err != nil {
		t.Fatalf("submit error = %v", err)
	}

	v := c.View()
	assertVisible(t, v, SectionAllStories)
	ids := storyIDs(t, v, SectionAllStories)
	if len(ids) != 3 {
		t.Fatalf("stories = %v, want 3", ids)
	}
	first := sectionDoc(t, v, SectionAllStories).Find("li").First()
	if got := first.Find(".story-hostname").Text(); got != "(example.com)" {
		t.Errorf("new story hostname = %q", got)
	}
	if api.StoryCount() != 3 {
		t.Errorf("server stories = %d, want 3", api.StoryCount())
	}

	if err := c.Dispatch(ctx, EventNavMyStories, Input{}); err != nil {
		t.Fatal(err)
	}
	mine := sectionDoc(t, c.View(), SectionMyStories)
	if mine.Find("li").Length() != 1 || mine.Find(".trash").Length() != 1 {
		t.Error("my stories should list the new story with a delete control")
	}
}

func TestSubmitStoryValidation(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"missing author", Input{Title: "T", URL: "http://example.com"}},
		{"missing title", Input{Author: "X", URL: "http://example.com"}},
		{"no scheme", Input{Author: "X", Title: "T", URL: "example.com"}},
		{"ftp scheme", Input{Author: "X", Title: "T", URL: "ftp://example.com"}},
		{"not a url", Input{Author: "X", Title: "T", URL: "just words"}},
		{"embedded url", Input{Author: "X", Title: "T", URL: "see http://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api := setupController(t)
			loginAlice(t, c)

			err := c.Dispatch(context.Background(), EventSubmitStory, tt.in)
			if !errors.Is(err, apiclient.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			for _, call := range api.Calls() {
				if call == modeltest.OpCreateStory {
					t.Error("invalid input should not reach the API")
				}
			}
		})
	}
}

func TestToggleFavorite(t *testing.T) {
	c, _ := setupController(t)
	loginAlice(t, c)
	ctx := context.Background()

	if err := c.Dispatch(ctx, EventToggleFavorite, Input{StoryID: "story-2"}); err != nil {
		t.Fatalf("toggle error = %v", err)
	}

	v := c.View()
	assertVisible(t, v, SectionAllStories)
	star := sectionDoc(t, v, SectionAllStories).Find("#story-2 .star i")
	if !star.HasClass("fas") {
		t.Error("favorited story should show a solid star")
	}
	if ids := storyIDs(t, v, SectionFavorites); !reflect.DeepEqual(ids, []string{"story-2"}) {
		t.Errorf("favorites = %v, want [story-2]", ids)
	}

	if err := c.Dispatch(ctx, EventToggleFavorite, Input{StoryID: "story-2"}); err != nil {
		t.Fatalf("toggle error = %v", err)
	}
	v = c.View()
	if !sectionDoc(t, v, SectionAllStories).Find("#story-2 .star i").HasClass("far") {
		t.Error("unfavorited story should show a hollow star")
	}
	if got := sectionDoc(t, v, SectionFavorites).Find("h5").Text(); got != noFavoritesMessage {
		t.Errorf("favorites empty message = %q", got)
	}
}

func TestToggleFavoriteFailure(t *testing.T) {
	c, api := setupController(t)
	loginAlice(t, c)
	ctx := context.Background()
	before := c.View()

	api.FailOn(modeltest.OpAddFavorite, &apiclient.Error{Op: "add favorite", Kind: apiclient.ErrServer, Status: 500})
	if err := c.Dispatch(ctx, EventToggleFavorite, Input{StoryID: "story-2"}); !errors.Is(err, apiclient.ErrServer) {
		t.Fatalf("error = %v, want ErrServer", err)
	}

	after := c.View()
	if after.Content[SectionAllStories] != before.Content[SectionAllStories] {
		t.Error("content should be unchanged after a failed toggle")
	}

	if err := c.Dispatch(ctx, EventToggleFavorite, Input{StoryID: "missing"}); !errors.Is(err, apiclient.ErrNotFound) {
		t.Errorf("unknown story error = %v, want ErrNotFound", err)
	}
}

func TestToggleFavoritePostedAfterLoad(t *testing.T) {
	api := modeltest.NewFakeAPI()
	token := api.AddUser("alice", "secret", "Alice")
	api.Seed("bob", "Story A", "https://a.example.com")

	c := New(api, testLogger())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Posted and favorited elsewhere after this page loaded its stories.
	late := api.Seed("bob", "Story Late", "https://late.example.com")
	cred := apiclient.Credential{Username: "alice", Token: token}
	if _, err := api.AddFavorite(ctx, cred, late.StoryID); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	loginAlice(t, c)

	if err := c.Dispatch(ctx, EventNavFavorites, Input{}); err != nil {
		t.Fatalf("nav favorites error = %v", err)
	}
	if ids := storyIDs(t, c.View(), SectionFavorites); !reflect.DeepEqual(ids, []string{late.StoryID}) {
		t.Fatalf("favorites = %v, want [%s]", ids, late.StoryID)
	}

	if err := c.Dispatch(ctx, EventToggleFavorite, Input{StoryID: late.StoryID}); err != nil {
		t.Fatalf("toggle error = %v", err)
	}
	v := c.View()
	if got := sectionDoc(t, v, SectionFavorites).Find("h5").Text(); got != noFavoritesMessage {
		t.Errorf("favorites empty message = %q", got)
	}
	if v.Error != "" {
		t.Errorf("view error = %q", v.Error)
	}
}

func TestDeleteStory(t *testing.T) {
	c, _ := setupController(t)
	loginAlice(t, c)
	ctx := context.Background()

	if err := c.Dispatch(ctx, EventSubmitStory, Input{Author: "X", Title: "Mine", URL: "https://mine.example.com"}); err != nil {
		t.Fatal(err)
	}
	mine := storyIDs(t, c.View(), SectionAllStories)[0]

	if err := c.Dispatch(ctx, EventDeleteStory, Input{StoryID: mine}); err != nil {
		t.Fatalf("delete error = %v", err)
	}

	v := c.View()
	assertVisible(t, v, SectionMyStories)
	if got := sectionDoc(t, v, SectionMyStories).Find("h5").Text(); got != noStoriesMessage {
		t.Errorf("my stories message = %q", got)
	}
	for _, id := range storyIDs(t, v, SectionAllStories) {
		if id == mine {
			t.Error("deleted story still listed")
		}
	}
}

func TestDeleteOthersStory(t *testing.T) {
	c, _ := setupController(t)
	loginAlice(t, c)

	err := c.Dispatch(context.Background(), EventDeleteStory, Input{StoryID: "story-2"})
	if !errors.Is(err, apiclient.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	if ids := storyIDs(t, c.View(), SectionAllStories); len(ids) != 2 {
		t.Errorf("stories = %v, want 2", ids)
	}
}

func TestLogout(t *testing.T) {
	c, _ := setupController(t)
	loginAlice(t, c)
	ctx := context.Background()

	if err := c.Dispatch(ctx, EventNavFavorites, Input{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Dispatch(ctx, EventLogout, Input{}); err != nil {
		t.Fatalf("logout error = %v", err)
	}

	v := c.View()
	assertVisible(t, v, SectionAllStories)
	if v.Nav != loggedOutNav() {
		t.Errorf("nav = %+v, want logged out", v.Nav)
	}
	if _, ok := v.Content[SectionFavorites]; ok {
		t.Error("favorites markup should be dropped on logout")
	}
	if c.Username() != "" {
		t.Errorf("Username() = %q, want empty", c.Username())
	}
}

func TestHandleOverridesTable(t *testing.T) {
	c, _ := setupController(t)
	called := false
	c.Handle(Event("custom"), func(ctx context.Context, app *App, view *View, in Input) error {
		called = true
		view.HideAll()
		return nil
	})

	if err := c.Dispatch(context.Background(), Event("custom"), Input{}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("custom handler was not called")
	}
	if len(c.View().VisibleSections()) != 0 {
		t.Error("custom handler view change should be committed")
	}
}
