// Package render turns stories into HTML fragments. Nothing here reads
// or changes application state.
package render

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/alphabot-ai/snooze/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var fragments = template.Must(template.ParseFS(templateFS, "templates/story.html"))

// Viewer is what the renderer knows about who is looking at a story.
type Viewer struct {
	IsLoggedIn        bool
	IsFavorited       bool
	ShowDeleteControl bool
}

type item struct {
	Story  *model.Story
	Viewer Viewer
}

// Story renders a single story as an <li>. The star control appears only
// for logged in viewers, the trash control only when ShowDeleteControl
// is set.
func Story(story *model.Story, viewer Viewer) (template.HTML, error) {
	return execute("story", item{Story: story, Viewer: viewer})
}

// StoryList renders stories in order, asking viewerFor how each one is
// seen. With no stories it renders emptyMessage as a heading, or nothing
// when emptyMessage is "".
func StoryList(stories []*model.Story, viewerFor func(*model.Story) Viewer, emptyMessage string) (template.HTML, error) {
	items := make([]item, 0, len(stories))
	for _, s := range stories {
		items = append(items, item{Story: s, Viewer: viewerFor(s)})
	}

	return execute("story-list", struct {
		Items []item
		Empty string
	}{items, emptyMessage})
}

// ViewerFor returns the viewer function for user; user may be nil.
func ViewerFor(user *model.User, showDelete bool) func(*model.Story) Viewer {
	return func(s *model.Story) Viewer {
		return Viewer{
			IsLoggedIn:        user != nil,
			IsFavorited:       user.IsFavorite(s),
			ShowDeleteControl: showDelete && user.IsOwn(s),
		}
	}
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
