package backend

import (
	"context"
	"net/http"
)

// Credentials for login: the backend accepts email or phone as the login.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Registration is the signup payload.
type Registration struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session token. No credential is attached
// to the request itself.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	return c.obtainToken(ctx, "/api/users/login", creds)
}

// Signup registers a new account and returns its session token.
func (c *Client) Signup(ctx context.Context, reg Registration) (Session, error) {
	return c.obtainToken(ctx, "/api/users/signup", reg)
}

func (c *Client) obtainToken(ctx context.Context, path string, body any) (Session, error) {
	res, err := c.do(ctx, Session{}, http.MethodPost, path, body)
	if err != nil {
		return Session{}, err
	}
	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var tok tokenResponse
		if err := decodeJSON(res, &tok); err != nil {
			return Session{}, err
		}
		return Session{Token: tok.Token}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		res.Body.Close()
		return Session{}, ErrUnauthorized
	default:
		return Session{}, &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}
