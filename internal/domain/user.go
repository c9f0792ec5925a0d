package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// User represents the core user model in the application domain.
type User struct {
	ID    *surrealmodels.RecordID `json:"id,omitempty"`
	Email string                  `json:"email"`
	Name  *string                 `json:"name,omitempty"`
	Role  string                  `json:"role,omitempty"`
}

// UserRepository defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	SignIn(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}
