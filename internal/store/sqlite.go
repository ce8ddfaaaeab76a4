package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var storyColumns = []string{"id", "username", "author", "title", "url", "created_at"}

type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteStore(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}

	store := &SQLiteStore{db: db, log: log}
	if err := store.migrate(ctx, path); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context, path string) error {
	dbInstance, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create DB instance: %w", err)
	}

	srcInstance, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create source instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcInstance, "sqlite3", dbInstance)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		s.log.InfoContext(ctx, "No migrations to apply",
			"dbPath", path)
		return nil
	}

	version, dirty, _ := m.Version()
	s.log.InfoContext(ctx, "DB is migrated",
		"dbPath", path,
		"version", version,
		"dirty", dirty)
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Users

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query, args, err := sq.Insert("users").
		Columns("username", "name", "password_hash", "created_at").
		Values(user.Username, user.Name, user.PasswordHash, user.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return conflict(err)
}

func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*User, error) {
	query, args, err := sq.Select("username", "name", "password_hash", "created_at").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var u User
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&u.Username, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Stories

func (s *SQLiteStore) CreateStory(ctx context.Context, story *Story) error {
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}

	query, args, err := sq.Insert("stories").
		Columns(storyColumns...).
		Values(story.ID, story.Username, story.Author, story.Title, story.URL, story.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return conflict(err)
}

func (s *SQLiteStore) GetStory(ctx context.Context, id string) (*Story, error) {
	query, args, err := sq.Select(storyColumns...).
		From("stories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	story, err := scanStory(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return story, err
}

func (s *SQLiteStore) ListStories(ctx context.Context) ([]*Story, error) {
	return s.queryStories(ctx, "ListStories", sq.Select(storyColumns...).
		From("stories").
		OrderBy("created_at DESC", "rowid DESC"))
}

func (s *SQLiteStore) ListStoriesByUser(ctx context.Context, username string) ([]*Story, error) {
	return s.queryStories(ctx, "ListStoriesByUser", sq.Select(storyColumns...).
		From("stories").
		Where(sq.Eq{"username": username}).
		OrderBy("created_at DESC", "rowid DESC"))
}

func (s *SQLiteStore) DeleteStory(ctx context.Context, id string) error {
	query, args, err := sq.Delete("stories").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Favorites

func (s *SQLiteStore) AddFavorite(ctx context.Context, username, storyID string) error {
	query, args, err := sq.Insert("favorites").
		Options("OR IGNORE").
		Columns("username", "story_id", "created_at").
		Values(username, storyID, time.Now().UTC()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) RemoveFavorite(ctx context.Context, username, storyID string) error {
	query, args, err := sq.Delete("favorites").
		Where(sq.Eq{"username": username, "story_id": storyID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) ListFavorites(ctx context.Context, username string) ([]*Story, error) {
	columns := make([]string, len(storyColumns))
	for i, c := range storyColumns {
		columns[i] = "s." + c
	}

	return s.queryStories(ctx, "ListFavorites", sq.Select(columns...).
		From("favorites f").
		Join("stories s ON s.id = f.story_id").
		Where(sq.Eq{"f.username": username}).
		OrderBy("f.created_at ASC", "f.rowid ASC"))
}

// Tokens

func (s *SQLiteStore) CreateToken(ctx context.Context, token *Token) error {
	query, args, err := sq.Insert("tokens").
		Columns("token", "username", "expires_at").
		Values(token.Token, token.Username, token.ExpiresAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return conflict(err)
}

func (s *SQLiteStore) GetToken(ctx context.Context, token string) (*Token, error) {
	query, args, err := sq.Select("token", "username", "expires_at").
		From("tokens").
		Where(sq.Eq{"token": token}).
		Where(sq.Gt{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var t Token
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&t.Token, &t.Username, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete("tokens").
		Where(sq.LtOrEq{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Helpers

func (s *SQLiteStore) queryStories(ctx context.Context, operation string, b sq.SelectBuilder) ([]*Story, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", operation)
		}
	}()

	stories := []*Story{}
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStory(row scanner) (*Story, error) {
	var story Story
	err := row.Scan(&story.ID, &story.Username, &story.Author, &story.Title, &story.URL, &story.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// conflict maps constraint violations to ErrConflict.
func conflict(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
