package store

import (
	"context"
	"errors"
)

// ErrConflict is returned when a create would duplicate a primary key.
var ErrConflict = errors.New("already exists")

// Store defines the interface for data persistence. Getters return
// (nil, nil) when nothing matches.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)

	// Stories
	CreateStory(ctx context.Context, story *Story) error
	GetStory(ctx context.Context, id string) (*Story, error)
	ListStories(ctx context.Context) ([]*Story, error) // newest first
	ListStoriesByUser(ctx context.Context, username string) ([]*Story, error)
	DeleteStory(ctx context.Context, id string) error

	// Favorites
	AddFavorite(ctx context.Context, username, storyID string) error
	RemoveFavorite(ctx context.Context, username, storyID string) error
	ListFavorites(ctx context.Context, username string) ([]*Story, error) // in the order added

	// Tokens
	CreateToken(ctx context.Context, token *Token) error
	GetToken(ctx context.Context, token string) (*Token, error) // unexpired only
	DeleteExpiredTokens(ctx context.Context) (int64, error)

	// Lifecycle
	Close() error
}
