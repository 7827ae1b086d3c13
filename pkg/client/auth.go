package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Session holds the bearer token for gated endpoints. The token's expiry is
// read from its claims (without signature verification, which only the
// backend can do) so gated calls can short-circuit locally instead of
// burning a round trip on a dead token.
type Session struct {
	mu      sync.RWMutex
	token   string
	expires time.Time
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Valid reports whether a token is present and not past its expiry. Tokens
// without an exp claim are trusted until the backend rejects them.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if s.expires.IsZero() {
		return true
	}
	return time.Now().Before(s.expires)
}

// SetToken installs a token obtained elsewhere (e.g. loaded from disk).
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expires = tokenExpiry(token)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	// numeric claims decode as float64
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(exp), 0)
}

// Login exchanges credentials for a bearer token and stores it on the
// session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return err
	}
	c.session.SetToken(out.AccessToken)
	return nil
}

func (c *Client) Logout() {
	c.session.Clear()
}
