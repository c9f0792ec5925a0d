package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"

	"github.com/opsdeck/opsdeck/internal/domain"
)

// SurrealUserStore implements domain.UserRepository against SurrealDB's
// record-access authentication.
type SurrealUserStore struct {
	db     *surrealdb.DB
	ns     string
	dbName string
}

// NewSurrealUserStore creates a new SurrealUserStore.
func NewSurrealUserStore(db *surrealdb.DB, ns, dbName string) *SurrealUserStore {
	return &SurrealUserStore{db: db, ns: ns, dbName: dbName}
}

// SignIn authenticates the operator's credentials and returns a session token.
func (s *SurrealUserStore) SignIn(ctx context.Context, email, password string) (string, error) {
	token, err := s.db.SignIn(ctx, map[string]interface{}{
		"ns":       s.ns,
		"db":       s.dbName,
		"ac":       "account",
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", domain.ErrInvalidCredentials
	}

	slog.Info("Operator signed in", "email", email)
	return token, nil
}

// Authenticate validates a session token and returns the associated user.
func (s *SurrealUserStore) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	// This validates the token against the 'account' scope and sets the
	// auth context for subsequent queries on this connection.
	if err := s.db.Authenticate(ctx, token); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	users, err := Query[domain.User](ctx, s.db, "SELECT * FROM $auth", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	if len(users) == 0 || users[0].ID == nil {
		return nil, domain.ErrInvalidCredentials
	}

	return &users[0], nil
}

// FindUserByEmail queries for a single user by their email address.
func (s *SurrealUserStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := QueryOne[domain.User](ctx, s.db, "SELECT * FROM user WHERE email = $email", map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}
