// Package modeltest provides an in-memory stand-in for the story API.
package modeltest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alphabot-ai/snooze/internal/apiclient"
)

// Operation names accepted by FailOn.
const (
	OpListStories    = "list stories"
	OpCreateStory    = "create story"
	OpDeleteStory    = "delete story"
	OpAddFavorite    = "add favorite"
	OpRemoveFavorite = "remove favorite"
	OpLogin          = "login"
	OpSignup         = "signup"
	OpGetUser        = "get user"
)

type fakeUser struct {
	password  string
	name      string
	createdAt time.Time
	favorites []string
}

// FakeAPI keeps stories and users in memory and enforces the same
// ownership and credential rules as the real backend.
type FakeAPI struct {
	mu      sync.Mutex
	stories []apiclient.Story
	users   map[string]*fakeUser
	tokens  map[string]string
	nextID  int
	failOn  map[string]error
	calls   []string

	// OmitUserRecord makes favorite calls answer without a user record.
	OmitUserRecord bool
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		users:  make(map[string]*fakeUser),
		tokens: make(map[string]string),
		failOn: make(map[string]error),
	}
}

// AddUser registers a user and returns a valid token for it.
func (f *FakeAPI) AddUser(username, password, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(username, password, name)
}

func (f *FakeAPI) addUserLocked(username, password, name string) string {
	f.users[username] = &fakeUser{password: password, name: name, createdAt: time.Unix(0, 0).UTC()}
	f.nextID++
	token := fmt.Sprintf("token-%d", f.nextID)
	f.tokens[token] = username
	return token
}

// Seed appends a story owned by username and returns it.
func (f *FakeAPI) Seed(username, title, url string) apiclient.Story {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	s := apiclient.Story{
		StoryID:   fmt.Sprintf("story-%d", f.nextID),
		Title:     title,
		Author:    username,
		URL:       url,
		Username:  username,
		CreatedAt: time.Unix(int64(f.nextID), 0).UTC(),
	}
	f.stories = append(f.stories, s)
	return s
}

// FailOn makes every call of op fail with err until cleared with a nil err.
func (f *FakeAPI) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failOn, op)
		return
	}
	f.failOn[op] = err
}

// Calls returns the operations invoked so far.
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// StoryCount reports how many stories the fake server holds.
func (f *FakeAPI) StoryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stories)
}

func (f *FakeAPI) begin(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *FakeAPI) auth(op string, cred apiclient.Credential) error {
	if cred.Token == "" || f.tokens[cred.Token] != cred.Username {
		return &apiclient.Error{Op: op, Kind: apiclient.ErrAuth, Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	return nil
}

func (f *FakeAPI) story(id string) (int, bool) {
	for i, s := range f.stories {
		if s.StoryID == id {
			return i, true
		}
	}
	return -1, false
}

func (f *FakeAPI) record(username string) apiclient.UserRecord {
	u := f.users[username]
	rec := apiclient.UserRecord{
		Username:  username,
		Name:      u.name,
		CreatedAt: u.createdAt,
		Favorites: []apiclient.Story{},
		Stories:   []apiclient.Story{},
	}
	for _, id := range u.favorites {
		if i, ok := f.story(id); ok {
			rec.Favorites = append(rec.Favorites, f.stories[i])
		}
	}
	for _, s := range f.stories {
		if s.Username == username {
			rec.Stories = append(rec.Stories, s)
		}
	}
	return rec
}

func (f *FakeAPI) ListStories(ctx context.Context) ([]apiclient.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpListStories); err != nil {
		return nil, err
	}
	return append([]apiclient.Story(nil), f.stories...), nil
}

func (f *FakeAPI) CreateStory(ctx context.Context, cred apiclient.Credential, story apiclient.NewStory) (apiclient.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCreateStory); err != nil {
		return apiclient.Story{}, err
	}
	if err := f.auth(OpCreateStory, cred); err != nil {
		return apiclient.Story{}, err
	}
	if story.Author == "" || story.Title == "" || story.URL == "" {
		return apiclient.Story{}, &apiclient.Error{Op: OpCreateStory, Kind: apiclient.ErrValidation, Status: http.StatusBadRequest}
	}

	f.nextID++
	s := apiclient.Story{
		StoryID:   fmt.Sprintf("story-%d", f.nextID),
		Title:     story.Title,
		Author:    story.Author,
		URL:       story.URL,
		Username:  cred.Username,
		CreatedAt: time.Unix(int64(f.nextID), 0).UTC(),
	}
	f.stories = append([]apiclient.Story{s}, f.stories...)
	return s, nil
}

func (f *FakeAPI) DeleteStory(ctx context.Context, cred apiclient.Credential, storyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpDeleteStory); err != nil {
		return err
	}
	if err := f.auth(OpDeleteStory, cred); err != nil {
		return err
	}

	i, ok := f.story(storyID)
	if !ok {
		return &apiclient.Error{Op: OpDeleteStory, Kind: apiclient.ErrNotFound, Status: http.StatusNotFound}
	}
	if f.stories[i].Username != cred.Username {
		return &apiclient.Error{Op: OpDeleteStory, Kind: apiclient.ErrAuth, Status: http.StatusForbidden}
	}
	f.stories = append(f.stories[:i], f.stories[i+1:]...)
	return nil
}

func (f *FakeAPI) AddFavorite(ctx context.Context, cred apiclient.Credential, storyID string) (*apiclient.UserRecord, error) {
	return f.favorite(OpAddFavorite, cred, storyID, true)
}

func (f *FakeAPI) RemoveFavorite(ctx context.Context, cred apiclient.Credential, storyID string) (*apiclient.UserRecord, error) {
	return f.favorite(OpRemoveFavorite, cred, storyID, false)
}

func (f *FakeAPI) favorite(op string, cred apiclient.Credential, storyID string, add bool) (*apiclient.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(op); err != nil {
		return nil, err
	}
	if err := f.auth(op, cred); err != nil {
		return nil, err
	}
	if _, ok := f.story(storyID); !ok {
		return nil, &apiclient.Error{Op: op, Kind: apiclient.ErrNotFound, Status: http.StatusNotFound}
	}

	u := f.users[cred.Username]
	kept := u.favorites[:0:0]
	for _, id := range u.favorites {
		if id != storyID {
			kept = append(kept, id)
		}
	}
	if add {
		kept = append(kept, storyID)
	}
	u.favorites = kept

	if f.OmitUserRecord {
		return nil, nil
	}
	rec := f.record(cred.Username)
	return &rec, nil
}

func (f *FakeAPI) Login(ctx context.Context, username, password string) (string, apiclient.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpLogin); err != nil {
		return "", apiclient.UserRecord{}, err
	}

	u, ok := f.users[username]
	if !ok || u.password != password {
		return "", apiclient.UserRecord{}, &apiclient.Error{Op: OpLogin, Kind: apiclient.ErrAuth, Status: http.StatusUnauthorized}
	}
	f.nextID++
	token := fmt.Sprintf("token-%d", f.nextID)
	f.tokens[token] = username
	return token, f.record(username), nil
}

func (f *FakeAPI) Signup(ctx context.Context, username, password, name string) (string, apiclient.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpSignup); err != nil {
		return "", apiclient.UserRecord{}, err
	}
	if username == "" || password == "" || name == "" {
		return "", apiclient.UserRecord{}, &apiclient.Error{Op: OpSignup, Kind: apiclient.ErrValidation, Status: http.StatusBadRequest}
	}
	if _, taken := f.users[username]; taken {
		return "", apiclient.UserRecord{}, &apiclient.Error{Op: OpSignup, Kind: apiclient.ErrValidation, Status: http.StatusConflict}
	}

	token := f.addUserLocked(username, password, name)
	return token, f.record(username), nil
}

func (f *FakeAPI) GetUser(ctx context.Context, cred apiclient.Credential) (apiclient.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpGetUser); err != nil {
		return apiclient.UserRecord{}, err
	}
	if err := f.auth(OpGetUser, cred); err != nil {
		return apiclient.UserRecord{}, err
	}
	return f.record(cred.Username), nil
}
