package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrEmptyToken = errors.New("matching service returned an empty access token")

type Credentials struct {
	Email    string `json:"user_email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Name            string `json:"user_name" validate:"required"`
	Email           string `json:"user_email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Account is the user record returned by signup.
type Account struct {
	ID    int    `json:"user_id"`
	Name  string `json:"user_name"`
	Email string `json:"user_email"`
}

// Login exchanges credentials for an access token and starts using it. The
// service reads an OAuth2 password form, so the email goes in as username.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	if err := validate.Struct(creds); err != nil {
		return "", fmt.Errorf("invalid credentials: %w", err)
	}

	form := url.Values{}
	form.Set("username", creds.Email)
	form.Set("password", creds.Password)

	var response tokenResponse
	if err := c.postForm(ctx, c.endpoint(loginPath), form, &response); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if response.AccessToken == "" {
		return "", ErrEmptyToken
	}

	c.SetToken(response.AccessToken)
	return response.AccessToken, nil
}

// Signup registers a new account and then logs in with it.
func (c *Client) Signup(ctx context.Context, reg Registration) (string, error) {
	if err := validate.Struct(reg); err != nil {
		return "", fmt.Errorf("invalid registration: %w", err)
	}

	var account Account
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(signupPath), reg, &account); err != nil {
		return "", fmt.Errorf("sign up: %w", err)
	}
	c.logger.Info("account created", zap.String("email", reg.Email), zap.Int("user_id", account.ID))

	return c.Login(ctx, Credentials{Email: reg.Email, Password: reg.Password})
}

// TokenExpiry reads the exp claim without verifying the signature. The second
// value is false when the token carries no expiry.
func TokenExpiry(token string) (time.Time, bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, err
	}
	if exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}
