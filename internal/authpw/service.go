// Package authpw provides email/password authentication for dashboard
// admins.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"rohis/api/internal/store"
	"rohis/api/internal/util"
)

// AdminsPath is the collection holding dashboard accounts.
const AdminsPath = "admins"

// ErrInvalidCredentials is returned for any sign-in failure; it never
// reveals whether the email exists.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Admin is an authenticated dashboard identity.
type Admin struct {
	ID    string
	Email string
	Name  string
}

// AdminStore is the slice of the data store this service needs.
type AdminStore interface {
	QueryByField(ctx context.Context, path, field, value string) (store.Collection, error)
	Put(ctx context.Context, path, key string, value any) error
}

// Service authenticates admins against the data store.
type Service struct {
	store AdminStore
}

// NewService creates an auth service.
func NewService(adminStore AdminStore) *Service {
	return &Service{store: adminStore}
}

// EnsureAdmin creates the seed admin account if no account with that email
// exists yet. Called at bootstrap with credentials from the environment.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	existing, err := s.store.QueryByField(ctx, AdminsPath, "email", email)
	if err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := store.Admin{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.store.Put(ctx, AdminsPath, util.NewID("adm"), admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// SignIn authenticates an admin by email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (Admin, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Admin{}, ErrInvalidCredentials
	}

	matches, err := s.store.QueryByField(ctx, AdminsPath, "email", email)
	if err != nil {
		return Admin{}, fmt.Errorf("look up admin: %w", err)
	}

	accounts, err := store.Decode[store.Admin](matches)
	if err != nil {
		return Admin{}, fmt.Errorf("decode admin: %w", err)
	}

	for key, account := range accounts {
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil {
			return Admin{ID: key, Email: account.Email, Name: account.Name}, nil
		}
	}
	return Admin{}, ErrInvalidCredentials
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
