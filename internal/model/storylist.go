package model

import (
	"context"

	"github.com/alphabot-ai/snooze/internal/apiclient"
)

// StoryList is the ordered set of stories shown on the main page.
// Story IDs are unique within it.
type StoryList struct {
	api     API
	stories []*Story
}

// FetchStories builds a StoryList from a fresh fetch of every story.
func FetchStories(ctx context.Context, api API) (*StoryList, error) {
	records, err := api.ListStories(ctx)
	if err != nil {
		return nil, err
	}
	return &StoryList{api: api, stories: storiesFromRecords(records)}, nil
}

// NewStoryList wraps already fetched stories. Later duplicates of an ID
// are dropped.
func NewStoryList(api API, stories []*Story) *StoryList {
	l := &StoryList{api: api}
	for _, s := range stories {
		if indexOf(l.stories, s.ID) < 0 {
			l.stories = append(l.stories, s)
		}
	}
	return l
}

// Stories returns the stories in display order. The slice is a copy.
func (l *StoryList) Stories() []*Story {
	out := make([]*Story, len(l.stories))
	copy(out, l.stories)
	return out
}

func (l *StoryList) Len() int {
	return len(l.stories)
}

// Get looks a story up by ID.
func (l *StoryList) Get(id string) (*Story, error) {
	if i := indexOf(l.stories, id); i >= 0 {
		return l.stories[i], nil
	}
	return nil, notFound("get story", id)
}

// Add creates a story on the server under user and puts it at the front
// of the list and of the user's own stories.
func (l *StoryList) Add(ctx context.Context, user *User, data apiclient.NewStory) (*Story, error) {
	record, err := l.api.CreateStory(ctx, user.Credential(), data)
	if err != nil {
		return nil, err
	}

	story := storyFromRecord(record)
	l.stories = append([]*Story{story}, without(l.stories, story.ID)...)
	if user != nil && story.Username == user.Username {
		user.OwnStories = append([]*Story{story}, without(user.OwnStories, story.ID)...)
	}
	return story, nil
}

// Remove deletes story on the server and drops it from the list and from
// the user's own and favorite stories.
func (l *StoryList) Remove(ctx context.Context, user *User, story *Story) error {
	if err := l.api.DeleteStory(ctx, user.Credential(), story.ID); err != nil {
		return err
	}

	l.stories = without(l.stories, story.ID)
	if user != nil {
		user.OwnStories = without(user.OwnStories, story.ID)
		user.Favorites = without(user.Favorites, story.ID)
	}
	return nil
}
