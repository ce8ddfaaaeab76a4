package apiclient

import "time"

// Story is a story record as the API returns it.
type Story struct {
	StoryID   string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewStory is the user supplied part of a story.
type NewStory struct {
	Author string `json:"author"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// UserRecord is a user as the API returns it.
type UserRecord struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Favorites []Story   `json:"favorites"`
	Stories   []Story   `json:"stories"`
}

// Credential identifies the caller of an authenticated request.
type Credential struct {
	Username string
	Token    string
}

type tokenRequest struct {
	Token string `json:"token"`
}

type createStoryRequest struct {
	Token string   `json:"token"`
	Story NewStory `json:"story"`
}

type userCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authRequest struct {
	User userCredentials `json:"user"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  UserRecord `json:"user"`
}

type storiesResponse struct {
	Stories []Story `json:"stories"`
}

type storyResponse struct {
	Message string `json:"message,omitempty"`
	Story   Story  `json:"story"`
}

type userResponse struct {
	Message string      `json:"message,omitempty"`
	User    *UserRecord `json:"user"`
}
