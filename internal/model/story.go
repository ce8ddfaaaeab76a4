package model

import (
	"context"
	"net/url"
	"time"

	"github.com/alphabot-ai/snooze/internal/apiclient"
)

// API is the part of the backend the models depend on.
// *apiclient.Client implements it.
type API interface {
	ListStories(ctx context.Context) ([]apiclient.Story, error)
	CreateStory(ctx context.Context, cred apiclient.Credential, story apiclient.NewStory) (apiclient.Story, error)
	DeleteStory(ctx context.Context, cred apiclient.Credential, storyID string) error
	AddFavorite(ctx context.Context, cred apiclient.Credential, storyID string) (*apiclient.UserRecord, error)
	RemoveFavorite(ctx context.Context, cred apiclient.Credential, storyID string) (*apiclient.UserRecord, error)
	Login(ctx context.Context, username, password string) (string, apiclient.UserRecord, error)
	Signup(ctx context.Context, username, password, name string) (string, apiclient.UserRecord, error)
	GetUser(ctx context.Context, cred apiclient.Credential) (apiclient.UserRecord, error)
}

var _ API = (*apiclient.Client)(nil)

// Story is a submitted link. It is never modified after it is fetched.
type Story struct {
	ID        string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// HostName returns the host (and port, if any) of the story URL, or ""
// when the URL cannot be parsed.
func (s *Story) HostName() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

func storyFromRecord(r apiclient.Story) *Story {
	return &Story{
		ID:        r.StoryID,
		Title:     r.Title,
		Author:    r.Author,
		URL:       r.URL,
		Username:  r.Username,
		CreatedAt: r.CreatedAt,
	}
}

func storiesFromRecords(records []apiclient.Story) []*Story {
	stories := make([]*Story, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.StoryID] {
			continue
		}
		seen[r.StoryID] = true
		stories = append(stories, storyFromRecord(r))
	}
	return stories
}

func indexOf(stories []*Story, id string) int {
	for i, s := range stories {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func without(stories []*Story, id string) []*Story {
	out := stories[:0:0]
	for _, s := range stories {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func notFound(op, id string) error {
	return &apiclient.Error{Op: op, Kind: apiclient.ErrNotFound, Message: "no story with id " + id}
}
