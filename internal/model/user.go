package model

import (
	"context"
	"strings"
	"time"

	"github.com/alphabot-ai/snooze/internal/apiclient"
)

// User is the logged in user for the length of a session.
type User struct {
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	Favorites  []*Story  `json:"favorites"`
	OwnStories []*Story  `json:"stories"`

	token string
	api   API
}

// Login authenticates against the API and returns the resulting user.
func Login(ctx context.Context, api API, username, password string) (*User, error) {
	token, record, err := api.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, err
	}
	return newUser(api, token, record), nil
}

// Signup creates an account and returns it logged in.
func Signup(ctx context.Context, api API, username, password, name string) (*User, error) {
	token, record, err := api.Signup(ctx, strings.TrimSpace(username), password, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return newUser(api, token, record), nil
}

func newUser(api API, token string, record apiclient.UserRecord) *User {
	u := &User{token: token, api: api}
	u.apply(record)
	return u
}

// apply replaces the user's fields with the server's view of them.
func (u *User) apply(record apiclient.UserRecord) {
	u.Username = record.Username
	u.Name = record.Name
	u.CreatedAt = record.CreatedAt
	u.Favorites = storiesFromRecords(record.Favorites)

	u.OwnStories = u.OwnStories[:0:0]
	for _, s := range storiesFromRecords(record.Stories) {
		if s.Username == u.Username {
			u.OwnStories = append(u.OwnStories, s)
		}
	}
}

// Credential returns what the API needs to act as this user. A nil user
// yields an empty credential, which the API rejects.
func (u *User) Credential() apiclient.Credential {
	if u == nil {
		return apiclient.Credential{}
	}
	return apiclient.Credential{Username: u.Username, Token: u.token}
}

// Refresh re-reads the user record from the server.
func (u *User) Refresh(ctx context.Context) error {
	record, err := u.api.GetUser(ctx, u.Credential())
	if err != nil {
		return err
	}
	u.apply(record)
	return nil
}

// IsFavorite reports whether story is among the user's favorites.
func (u *User) IsFavorite(story *Story) bool {
	return u != nil && indexOf(u.Favorites, story.ID) >= 0
}

// IsOwn reports whether the user posted story.
func (u *User) IsOwn(story *Story) bool {
	return u != nil && story.Username == u.Username
}

// AddFavorite favorites story. Local state changes only after the server
// accepts the request.
func (u *User) AddFavorite(ctx context.Context, story *Story) error {
	record, err := u.api.AddFavorite(ctx, u.Credential(), story.ID)
	if err != nil {
		return err
	}

	if record != nil && record.Favorites != nil {
		u.Favorites = storiesFromRecords(record.Favorites)
		return nil
	}
	if !u.IsFavorite(story) {
		u.Favorites = append(u.Favorites, story)
	}
	return nil
}

// RemoveFavorite un-favorites story.
func (u *User) RemoveFavorite(ctx context.Context, story *Story) error {
	record, err := u.api.RemoveFavorite(ctx, u.Credential(), story.ID)
	if err != nil {
		return err
	}

	if record != nil && record.Favorites != nil {
		u.Favorites = storiesFromRecords(record.Favorites)
		return nil
	}
	u.Favorites = without(u.Favorites, story.ID)
	return nil
}
