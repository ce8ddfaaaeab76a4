package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the story backend. Every call is single shot.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New creates a client for the API rooted at baseURL. A zero timeout
// leaves requests bounded only by their context.
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// ListStories fetches every story, newest first.
func (c *Client) ListStories(ctx context.Context) ([]Story, error) {
	var resp storiesResponse
	if err := c.do(ctx, "list stories", http.MethodGet, "/stories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stories, nil
}

// CreateStory posts a new story owned by cred.
func (c *Client) CreateStory(ctx context.Context, cred Credential, story NewStory) (Story, error) {
	const op = "create story"
	if err := requireToken(op, cred); err != nil {
		return Story{}, err
	}

	var resp storyResponse
	req := createStoryRequest{Token: cred.Token, Story: story}
	if err := c.do(ctx, op, http.MethodPost, "/stories", nil, req, &resp); err != nil {
		return Story{}, err
	}
	return resp.Story, nil
}

// DeleteStory removes a story owned by cred.
func (c *Client) DeleteStory(ctx context.Context, cred Credential, storyID string) error {
	const op = "delete story"
	if err := requireToken(op, cred); err != nil {
		return err
	}

	path := "/stories/" + url.PathEscape(storyID)
	return c.do(ctx, op, http.MethodDelete, path, nil, tokenRequest{Token: cred.Token}, nil)
}

// AddFavorite marks a story as a favorite of cred's user. The returned
// record is nil when the server did not include one.
func (c *Client) AddFavorite(ctx context.Context, cred Credential, storyID string) (*UserRecord, error) {
	return c.favorite(ctx, "add favorite", http.MethodPost, cred, storyID)
}

// RemoveFavorite drops a story from cred's favorites.
func (c *Client) RemoveFavorite(ctx context.Context, cred Credential, storyID string) (*UserRecord, error) {
	return c.favorite(ctx, "remove favorite", http.MethodDelete, cred, storyID)
}

func (c *Client) favorite(ctx context.Context, op, method string, cred Credential, storyID string) (*UserRecord, error) {
	if err := requireToken(op, cred); err != nil {
		return nil, err
	}

	path := "/users/" + url.PathEscape(cred.Username) + "/favorites/" + url.PathEscape(storyID)
	var resp userResponse
	if err := c.do(ctx, op, method, path, nil, tokenRequest{Token: cred.Token}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login exchanges a username and password for a token and user record.
func (c *Client) Login(ctx context.Context, username, password string) (string, UserRecord, error) {
	req := authRequest{User: userCredentials{Username: username, Password: password}}
	return c.authenticate(ctx, "login", "/login", req)
}

// Signup creates an account and logs it in.
func (c *Client) Signup(ctx context.Context, username, password, name string) (string, UserRecord, error) {
	req := authRequest{User: userCredentials{Username: username, Password: password, Name: name}}
	return c.authenticate(ctx, "signup", "/signup", req)
}

func (c *Client) authenticate(ctx context.Context, op, path string, req authRequest) (string, UserRecord, error) {
	var resp authResponse
	if err := c.do(ctx, op, http.MethodPost, path, nil, req, &resp); err != nil {
		return "", UserRecord{}, err
	}
	if resp.Token == "" {
		return "", UserRecord{}, &Error{Op: op, Kind: ErrServer, Message: "response carried no token"}
	}
	return resp.Token, resp.User, nil
}

// GetUser reads the user record for cred.
func (c *Client) GetUser(ctx context.Context, cred Credential) (UserRecord, error) {
	const op = "get user"
	if err := requireToken(op, cred); err != nil {
		return UserRecord{}, err
	}

	var resp userResponse
	path := "/users/" + url.PathEscape(cred.Username)
	query := url.Values{"token": {cred.Token}}
	if err := c.do(ctx, op, http.MethodGet, path, query, nil, &resp); err != nil {
		return UserRecord{}, err
	}
	if resp.User == nil {
		return UserRecord{}, &Error{Op: op, Kind: ErrServer, Message: "response carried no user"}
	}
	return *resp.User, nil
}

func requireToken(op string, cred Credential) error {
	if cred.Token == "" || cred.Username == "" {
		return &Error{Op: op, Kind: ErrAuth, Message: "not logged in"}
	}
	return nil
}

// do performs one request. body and out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: ErrValidation, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "API call finished",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"durationMs", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:      op,
			Kind:    KindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// readErrorMessage accepts {"error":"msg"} and
// {"error":{"status":400,"title":"...","message":"..."}} bodies.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Error) == 0 {
		return strings.TrimSpace(string(data))
	}

	var msg string
	if err := json.Unmarshal(envelope.Error, &msg); err == nil {
		return msg
	}

	var detailed struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detailed); err == nil {
		if detailed.Message != "" {
			return detailed.Message
		}
		return detailed.Title
	}

	return string(envelope.Error)
}
