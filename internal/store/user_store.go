package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/lightbnb/internal/domain"
	"github.com/vbonduro/lightbnb/internal/query"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail returns the first user, by id, whose email contains the given
// substring. The match is case-sensitive.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "find user by email", `
		SELECT id, name, email, password FROM users
		WHERE email LIKE $1 ESCAPE '\'
		ORDER BY id ASC LIMIT 1
	`, query.ContainsPattern(email))
}

// GetByEmail returns the user whose email is exactly email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "get user by email", `
		SELECT id, name, email, password FROM users WHERE email = $1
	`, email)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getOne(ctx, "get user", `
		SELECT id, name, email, password FROM users WHERE id = $1
	`, id)
}

// Create inserts a user. password must already be hashed.
func (s *UserStore) Create(ctx context.Context, name, email, password string) (*domain.User, error) {
	user := &domain.User{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password) VALUES ($1, $2, $3)
		RETURNING id, name, email, password
	`, name, email, password).Scan(&user.ID, &user.Name, &user.Email, &user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", classify(err))
	}
	return user, nil
}

func (s *UserStore) getOne(ctx context.Context, op, stmt string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := s.db.QueryRowContext(ctx, stmt, arg).Scan(&user.ID, &user.Name, &user.Email, &user.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return user, nil
}
