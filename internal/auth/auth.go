package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/alphabot-ai/snooze/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 1-32 letters, digits, '-' or '_'")
	ErrInvalidPassword    = errors.New("password must be 1-72 bytes")
	ErrInvalidName        = errors.New("name must not be empty")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

// Service handles accounts and bearer tokens for the dev API.
type Service struct {
	store    store.Store
	tokenTTL time.Duration
	cost     int
}

// NewService creates a new auth service
func NewService(s store.Store, tokenTTL time.Duration) *Service {
	return &Service{
		store:    s,
		tokenTTL: tokenTTL,
		cost:     bcrypt.DefaultCost,
	}
}

// Signup creates a user and returns a fresh token for it.
func (s *Service) Signup(ctx context.Context, username, password, name string) (*store.User, *store.Token, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if !usernamePattern.MatchString(username) {
		return nil, nil, ErrInvalidUsername
	}
	if password == "" || len(password) > maxPasswordBytes {
		return nil, nil, ErrInvalidPassword
	}
	if name == "" {
		return nil, nil, ErrInvalidName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, nil, err
	}

	user := &store.User{
		Username:     username,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, nil, ErrUsernameTaken
		}
		return nil, nil, err
	}

	token, err := s.issueToken(ctx, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// Login checks the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*store.User, *store.Token, error) {
	user, err := s.store.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// ValidateToken returns the token info, or nil if the token is unknown or expired.
func (s *Service) ValidateToken(ctx context.Context, tokenStr string) (*store.Token, error) {
	if tokenStr == "" {
		return nil, nil
	}
	return s.store.GetToken(ctx, tokenStr)
}

// PurgeExpired deletes expired tokens and reports how many went.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredTokens(ctx)
}

func (s *Service) issueToken(ctx context.Context, username string) (*store.Token, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, err
	}

	token := &store.Token{
		Token:     base64.URLEncoding.EncodeToString(tokenBytes),
		Username:  username,
		ExpiresAt: time.Now().UTC().Add(s.tokenTTL),
	}
	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}
