package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// AuthService maps the /auth endpoints.
type AuthService struct {
	c *Client
}

// Login exchanges credentials for an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (AuthTokens, error) {
	tokens, err := getData[AuthTokens](ctx, s.c, request{method: http.MethodPost, path: "/auth/login", body: creds})
	if err != nil {
		return AuthTokens{}, err
	}
	if strings.TrimSpace(tokens.Access.Token) == "" {
		return AuthTokens{}, &Error{Op: "POST /auth/login", Kind: KindDecode, Message: "login response carried no access token"}
	}
	return tokens, nil
}

// Logout notifies the server that token is no longer in use. The token is
// passed explicitly because the local session is usually cleared already.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("logout: token required")
	}
	return s.c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", token: token}, nil)
}

// Refresh swaps refreshToken for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	r := request{method: http.MethodPost, path: "/auth/refresh"}
	if refreshToken != "" {
		r.body = map[string]string{"refreshToken": refreshToken}
	}
	return getData[AuthTokens](ctx, s.c, r)
}

// ProfileService maps the /profile endpoints.
type ProfileService struct {
	c *Client
}

// Me returns the user owning the current token.
func (s *ProfileService) Me(ctx context.Context) (User, error) {
	return getData[User](ctx, s.c, request{method: http.MethodGet, path: "/profile/me"})
}
