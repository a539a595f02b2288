package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 5 * time.Second

// PostgresStore is the durable user directory backed by a pgx pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    firstname TEXT NOT NULL,
    lastname TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the directory schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply directory schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.Pool.Exec(queryCtx, `
		INSERT INTO users (id, username, password_hash, firstname, lastname, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Username, user.PasswordHash, user.FirstName, user.LastName, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.userBy(ctx, "username = $1", username)
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	return s.userBy(ctx, "id = $1", id)
}

func (s *PostgresStore) userBy(ctx context.Context, where string, arg any) (*User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u User
	err := s.Pool.QueryRow(queryCtx, `
		SELECT id, username, password_hash, firstname, lastname, created_at
		FROM users WHERE `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	sets := make([]string, 0, 3)
	args := []any{id}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("password_hash", update.PasswordHash)
	add("firstname", update.FirstName)
	add("lastname", update.LastName)
	if len(sets) == 0 {
		return nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.Pool.Exec(queryCtx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, filter string) ([]User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, `
		SELECT id, username, password_hash, firstname, lastname, created_at
		FROM users
		WHERE firstname ILIKE '%' || $1 || '%' OR lastname ILIKE '%' || $1 || '%'
		ORDER BY created_at
	`, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
