package render

import (
	"html/template"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/alphabot-ai/snooze/internal/model"
)

func parse(t *testing.T, markup template.HTML) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(markup)))
	if err != nil {
		t.Fatalf("failed to parse markup: %v", err)
	}
	return doc
}

func testStory() *model.Story {
	return &model.Story{
		ID:       "story-1",
		Title:    "A Story Title",
		Author:   "Ada",
		URL:      "https://news.example.com/a/b",
		Username: "ada",
	}
}

func TestStoryFields(t *testing.T) {
	markup, err := Story(testStory(), Viewer{})
	if err != nil {
		t.Fatalf("Story() error = %v", err)
	}
	doc := parse(t, markup)

	li := doc.Find("li")
	if id, _ := li.Attr("id"); id != "story-1" {
		t.Errorf("li id = %q, want story-1", id)
	}

	link := doc.Find("a.story-link")
	if href, _ := link.Attr("href"); href != "https://news.example.com/a/b" {
		t.Errorf("href = %q", href)
	}
	if got := strings.TrimSpace(link.Text()); got != "A Story Title" {
		t.Errorf("title = %q", got)
	}
	if got := doc.Find(".story-hostname").Text(); got != "(news.example.com)" {
		t.Errorf("hostname = %q, want (news.example.com)", got)
	}
	if got := doc.Find(".story-author").Text(); got != "by Ada" {
		t.Errorf("author = %q", got)
	}
	if got := doc.Find(".story-user").Text(); got != "posted by ada" {
		t.Errorf("user = %q", got)
	}
}

func TestStoryControls(t *testing.T) {
	tests := []struct {
		name      string
		viewer    Viewer
		wantStar  bool
		wantTrash bool
		wantClass string
	}{
		{"anonymous", Viewer{}, false, false, ""},
		{"anonymous with favorite flag", Viewer{IsFavorited: true}, false, false, ""},
		{"anonymous with delete", Viewer{ShowDeleteControl: true}, false, true, ""},
		{"logged in", Viewer{IsLoggedIn: true}, true, false, "far"},
		{"logged in favorite", Viewer{IsLoggedIn: true, IsFavorited: true}, true, false, "fas"},
		{"logged in own story", Viewer{IsLoggedIn: true, ShowDeleteControl: true}, true, true, "far"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup, err := Story(testStory(), tt.viewer)
			if err != nil {
				t.Fatalf("Story() error = %v", err)
			}
			doc := parse(t, markup)

			star := doc.Find(".star")
			if got := star.Length() > 0; got != tt.wantStar {
				t.Errorf("star present = %v, want %v", got, tt.wantStar)
			}
			if got := doc.Find(".trash").Length() > 0; got != tt.wantTrash {
				t.Errorf("trash present = %v, want %v", got, tt.wantTrash)
			}
			if tt.wantStar && !star.Find("i").HasClass(tt.wantClass) {
				t.Errorf("star icon should have class %q", tt.wantClass)
			}
			if tt.wantStar {
				if v, _ := star.Find("input[name=story_id]").Attr("value"); v != "story-1" {
					t.Errorf("star story_id = %q, want story-1", v)
				}
			}
		})
	}
}

func TestStoryDeterministic(t *testing.T) {
	v := Viewer{IsLoggedIn: true, IsFavorited: true, ShowDeleteControl: true}

	first, err := Story(testStory(), v)
	if err != nil {
		t.Fatalf("Story() error = %v", err)
	}
	second, err := Story(testStory(), v)
	if err != nil {
		t.Fatalf("Story() error = %v", err)
	}
	if first != second {
		t.Error("same story and viewer should render identically")
	}
}

func TestStoryEscaping(t *testing.T) {
	s := testStory()
	s.Title = `<script>alert("x")</script>`
	s.URL = "javascript:alert(1)"

	markup, err := Story(s, Viewer{})
	if err != nil {
		t.Fatalf("Story() error = %v", err)
	}

	if strings.Contains(string(markup), "<script>") {
		t.Error("title must be escaped")
	}
	doc := parse(t, markup)
	if href, _ := doc.Find("a.story-link").Attr("href"); strings.HasPrefix(href, "javascript:") {
		t.Errorf("unsafe href rendered: %q", href)
	}
}

func TestStoryList(t *testing.T) {
	a := &model.Story{ID: "a", Title: "First", URL: "http://a.example.com", Username: "ada"}
	b := &model.Story{ID: "b", Title: "Second", URL: "http://b.example.com", Username: "bob"}

	viewerFor := func(s *model.Story) Viewer {
		return Viewer{IsLoggedIn: true, ShowDeleteControl: s.Username == "ada"}
	}

	markup, err := StoryList([]*model.Story{a, b}, viewerFor, "Nothing here")
	if err != nil {
		t.Fatalf("StoryList() error = %v", err)
	}
	doc := parse(t, markup)

	items := doc.Find("li")
	if items.Length() != 2 {
		t.Fatalf("items = %d, want 2", items.Length())
	}
	if id, _ := items.Eq(0).Attr("id"); id != "a" {
		t.Errorf("first id = %q, want a", id)
	}
	if items.Eq(0).Find(".trash").Length() != 1 {
		t.Error("own story should have a trash control")
	}
	if items.Eq(1).Find(".trash").Length() != 0 {
		t.Error("other story should not have a trash control")
	}
	if doc.Find("h5").Length() != 0 {
		t.Error("non-empty list should not render the empty message")
	}
}

func TestStoryListEmpty(t *testing.T) {
	markup, err := StoryList(nil, ViewerFor(nil, false), "No favorites added!")
	if err != nil {
		t.Fatalf("StoryList() error = %v", err)
	}
	if got := parse(t, markup).Find("h5").Text(); got != "No favorites added!" {
		t.Errorf("empty message = %q", got)
	}

	markup, err = StoryList(nil, ViewerFor(nil, false), "")
	if err != nil {
		t.Fatalf("StoryList() error = %v", err)
	}
	if strings.TrimSpace(string(markup)) != "" {
		t.Errorf("markup = %q, want empty", markup)
	}
}

func TestViewerFor(t *testing.T) {
	own := &model.Story{ID: "own", Username: "ada"}
	other := &model.Story{ID: "other", Username: "bob"}
	user := &model.User{Username: "ada", Favorites: []*model.Story{{ID: "other"}}}

	if v := ViewerFor(nil, true)(own); v.IsLoggedIn || v.ShowDeleteControl || v.IsFavorited {
		t.Errorf("anonymous viewer = %+v, want zero", v)
	}

	v := ViewerFor(user, true)(own)
	if !v.IsLoggedIn || !v.ShowDeleteControl || v.IsFavorited {
		t.Errorf("own story viewer = %+v", v)
	}

	v = ViewerFor(user, true)(other)
	if v.ShowDeleteControl || !v.IsFavorited {
		t.Errorf("other story viewer = %+v", v)
	}

	if v := ViewerFor(user, false)(own); v.ShowDeleteControl {
		t.Error("delete control should be off when not requested")
	}
}
