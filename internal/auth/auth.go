// Package auth obtains the bearer token a probe run uses. Tokens live for
// one run only; there is no refresh and no cache.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"claimprobe/internal/config"
	"claimprobe/internal/logging"
	"claimprobe/internal/transport"
)

// MockLoginPath is the development login endpoint that issues a token for
// an empty body.
const MockLoginPath = "/api/v1/auth/mock/login/"

// ErrMissingCredentials is returned when password auth has no username or
// password to send.
var ErrMissingCredentials = errors.New("username and password required")

// Token is an access token held in memory for one run.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	Expiry      time.Time
	Source      string
}

// Preview returns the first n characters followed by "...".
func (t *Token) Preview(n int) string {
	if len(t.AccessToken) <= n {
		return t.AccessToken
	}
	return t.AccessToken[:n] + "..."
}

// Bearer returns the transport authorizer for this token.
func (t *Token) Bearer() transport.BearerToken {
	return transport.BearerToken{Token: t.AccessToken}
}

// Authenticator obtains a token.
type Authenticator interface {
	Token(ctx context.Context) (*Token, error)
	Name() string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func decodeToken(resp *transport.Response, source string) (*Token, error) {
	var tr tokenResponse
	if err := resp.JSON(&tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	tok := &Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresIn:   tr.ExpiresIn,
		Source:      source,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// =============================================================================
// MOCK LOGIN
// =============================================================================

// MockLogin posts an empty JSON object to the backend's mock login.
type MockLogin struct {
	Client  *transport.Client
	Timeout time.Duration
}

func (m *MockLogin) Name() string { return config.AuthMock }

func (m *MockLogin) Token(ctx context.Context) (*Token, error) {
	logging.Auth("mock login at %s", m.Client.BaseURL())
	resp, err := m.Client.PostJSON(ctx, MockLoginPath, struct{}{}, m.Timeout)
	if err != nil {
		return nil, fmt.Errorf("mock login: %w", err)
	}
	tok, err := decodeToken(resp, m.Name())
	if err != nil {
		return nil, fmt.Errorf("mock login: %w", err)
	}
	logging.Auth("mock login ok, token length %d", len(tok.AccessToken))
	return tok, nil
}

// =============================================================================
// PASSWORD GRANT
// =============================================================================

// PasswordGrant performs an OIDC resource owner password grant.
type PasswordGrant struct {
	Client   *transport.Client
	TokenURL string
	ClientID string
	Scope    string
	Username string
	Password string
	Timeout  time.Duration
}

func (p *PasswordGrant) Name() string { return config.AuthPassword }

func (p *PasswordGrant) Token(ctx context.Context) (*Token, error) {
	if p.Username == "" || p.Password == "" {
		return nil, ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("client_id", p.ClientID)
	form.Set("username", p.Username)
	form.Set("password", p.Password)
	form.Set("grant_type", "password")
	if p.Scope != "" {
		form.Set("scope", p.Scope)
	}

	logging.Auth("password grant for %s at %s", p.Username, p.TokenURL)
	resp, err := p.Client.PostForm(ctx, p.TokenURL, form, p.Timeout)
	if err != nil {
		logging.Get(logging.CategoryAuth).Warn("password grant failed for %s: %v", p.Username, err)
		return nil, fmt.Errorf("password grant: %w", err)
	}
	tok, err := decodeToken(resp, p.Name())
	if err != nil {
		return nil, fmt.Errorf("password grant: %w", err)
	}
	logging.Auth("password grant ok, expires in %ds", tok.ExpiresIn)
	return tok, nil
}

// =============================================================================
// STATIC TOKEN
// =============================================================================

// Static returns a token copied from an authenticated browser session.
type Static struct {
	AccessToken string
}

func (s *Static) Name() string { return config.AuthToken }

func (s *Static) Token(ctx context.Context) (*Token, error) {
	if s.AccessToken == "" {
		return nil, fmt.Errorf("static token: empty token")
	}
	return &Token{AccessToken: s.AccessToken, TokenType: "Bearer", Source: s.Name()}, nil
}

// New selects an authenticator from the active environment. A token set on
// the config wins over the configured mode.
func New(cfg *config.Config, client *transport.Client) (Authenticator, error) {
	env, err := cfg.Active()
	if err != nil {
		return nil, err
	}

	if cfg.Token != "" {
		return &Static{AccessToken: cfg.Token}, nil
	}

	switch env.Auth.Mode {
	case config.AuthMock:
		return &MockLogin{Client: client, Timeout: cfg.GetAuthTimeout()}, nil
	case config.AuthPassword:
		return &PasswordGrant{
			Client:   client,
			TokenURL: env.Auth.TokenURL,
			ClientID: env.Auth.ClientID,
			Scope:    env.Auth.Scope,
			Username: cfg.Login(),
			Password: cfg.Password,
			Timeout:  cfg.GetAuthTimeout(),
		}, nil
	case config.AuthToken:
		return nil, fmt.Errorf("auth mode %q requires a token (--token or CLAIMPROBE_TOKEN)", config.AuthToken)
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", env.Auth.Mode)
	}
}
