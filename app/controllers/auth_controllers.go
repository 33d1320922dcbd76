package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/ctx"
	"github.com/shashiranjanraj/grocerylist/pkg/form"
	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
)

const msgBadCredentials = "Invalid credentials."

// Authenticator checks login credentials.
type Authenticator interface {
	Attempt(ctx context.Context, email, password string) (*models.User, error)
}

// Credentials is the login form.
type Credentials struct {
	Email    string `form:"email"    validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// AuthController serves the login form and logout.
type AuthController struct {
	users   AuthProvider
	service Authenticator
}

func NewAuthController(users AuthProvider, service Authenticator) *AuthController {
	return &AuthController{users: users, service: service}
}

// Login shows the form and signs the user in on a valid submission.
func (ac *AuthController) Login(c *ctx.Context) error {
	current, err := ac.users.CurrentUser(c.Context())
	if err != nil {
		return err
	}
	if current != nil {
		return c.RedirectToRoute("app_grocerylist", nil, http.StatusFound)
	}

	var creds Credentials
	f := form.New("login", &creds)
	if err := f.Handle(c.R); err != nil {
		return err
	}

	data := ctx.Data{"form": f}
	if f.IsSubmitted() && f.IsValid() {
		user, err := ac.service.Attempt(c.Context(), creds.Email, creds.Password)
		switch {
		case err == nil:
			auth.Login(c.Session(), user.ID)
			logger.WithCtx(c.Context()).Info("user logged in", "user_id", user.ID)
			return c.RedirectToRoute("app_grocerylist", nil, http.StatusFound)
		case errors.Is(err, auth.ErrBadCredentials):
			metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
			logger.WithCtx(c.Context()).Info("login rejected", "ip", c.ClientIP())
			data["error"] = msgBadCredentials
		default:
			return err
		}
	}

	return c.Render(formStatus(f.IsSubmitted()), "security/login", data)
}

// Logout ends the session. It needs the logout CSRF token.
func (ac *AuthController) Logout(c *ctx.Context) error {
	f := form.New("logout", &form.Confirm{})
	if err := f.Handle(c.R); err != nil {
		return err
	}
	if !f.IsValid() {
		return httperr.NewForbidden("Invalid CSRF token.")
	}

	auth.Logout(c.Session())
	return c.RedirectToRoute("app_login", nil, http.StatusFound)
}

// Home sends visitors to their list.
func Home(c *ctx.Context) error {
	return c.RedirectToRoute("app_grocerylist", nil, http.StatusFound)
}
