package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
	"github.com/shashiranjanraj/grocerylist/pkg/validate"
)

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = auth.HashPassword("grocerylist-timing-guard")

// Attempt checks email and password. Any mismatch is auth.ErrBadCredentials.
func (s *AuthService) Attempt(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if orm.IsNotFound(err) {
			auth.CheckPassword(dummyHash, password)
			return nil, auth.ErrBadCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, auth.ErrBadCredentials
	}
	return user, nil
}

// Registration is the input of Register.
type Registration struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// ValidationError lists the rejected fields of a Registration.
type ValidationError struct {
	Fields validate.Errors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	return "invalid registration: " + strings.Join(parts, " ")
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, in Registration) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if errs := validate.Struct(in); errs.HasErrors() {
		return nil, &ValidationError{Fields: errs}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Name: in.Name, Email: in.Email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// IssueToken signs a bearer token for the user with email.
func (s *AuthService) IssueToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if orm.IsNotFound(err) {
			return "", fmt.Errorf("no user with email %q", email)
		}
		return "", err
	}
	return auth.GenerateToken(user.ID, ttl)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidation reports whether err came from Register's input checks.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
