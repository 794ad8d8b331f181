package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

const (
	grantPassword     = "password"
	grantRefreshToken = "refresh_token"

	defaultHTTPTimeout = 15 * time.Second
)

// TokenConfig describes the authorization endpoint and the credentials used
// to obtain a bearer token from it.
type TokenConfig struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
}

// tokenResponse is the grant response shape expected from the auth endpoint.
type tokenResponse struct {
	Token        string `json:"token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenManager obtains and refreshes a short-lived bearer token. Token state
// is the only mutable shared resource in the subsystem; the mutex is held
// across a refresh so concurrent callers never issue duplicate grants.
type TokenManager struct {
	cfg    TokenConfig
	client *http.Client
	log    *slog.Logger
	now    func() time.Time

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiry       time.Time
}

// NewTokenManager constructs a manager for the given endpoint and credentials.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	return &TokenManager{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		log:    logger.Named("auth"),
		now:    time.Now,
	}
}

// Authenticate performs the initial grant: password when username+password
// are configured, refresh otherwise. Failures are reported as false, never
// panicked or thrown, so initialisation can degrade to read-only mode.
func (m *TokenManager) Authenticate(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Username != "" && m.cfg.Password != "" {
		return m.authenticateLocked(ctx, grantPassword)
	}
	if m.refreshTokenLocked() != "" {
		return m.authenticateLocked(ctx, grantRefreshToken)
	}
	m.log.Error("no valid credentials for bearer authentication")
	return false
}

// EnsureValidToken makes sure a non-expired token is held, lazily refreshing
// through the stored refresh token. This is the sole automatic-refresh path;
// there is no background timer.
func (m *TokenManager) EnsureValidToken(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.now().Before(m.expiry) {
		return true
	}
	if m.refreshTokenLocked() == "" {
		return false
	}
	return m.authenticateLocked(ctx, grantRefreshToken)
}

// AuthHeader returns the Authorization header value, refreshing first when
// needed.
func (m *TokenManager) AuthHeader(ctx context.Context) (string, error) {
	if !m.EnsureValidToken(ctx) {
		return "", xerrors.New(xerrors.CodeAuthentication, "failed to obtain a valid bearer token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return "Bearer " + m.accessToken, nil
}

// Logout revokes the current token best-effort and unconditionally clears
// all token state. The revocation endpoint is derived from the auth URL's
// origin.
func (m *TokenManager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.accessToken
	m.mu.Unlock()

	if token != "" {
		if endpoint, err := logoutEndpoint(m.cfg.AuthURL); err == nil {
			body, _ := json.Marshal(map[string]string{"token": token})
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if err == nil {
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+token)
				if resp, err := m.client.Do(req); err != nil {
					m.log.Warn("logout request failed", slog.String("error", err.Error()))
				} else {
					resp.Body.Close()
				}
			}
		}
	}

	m.clear()
}

// authenticateLocked posts a single grant request. Callers hold m.mu.
func (m *TokenManager) authenticateLocked(ctx context.Context, grant string) bool {
	payload := map[string]string{
		"client_id":  m.cfg.ClientID,
		"grant_type": grant,
	}
	if m.cfg.ClientSecret != "" {
		payload["client_secret"] = m.cfg.ClientSecret
	}
	switch grant {
	case grantPassword:
		payload["username"] = m.cfg.Username
		payload["password"] = m.cfg.Password
	case grantRefreshToken:
		payload["refresh_token"] = m.refreshTokenLocked()
	}

	resp, err := m.postGrant(ctx, payload)
	if err != nil {
		m.log.Error("bearer authentication failed",
			slog.String("grant", grant), slog.String("error", err.Error()))
		return false
	}

	m.accessToken = resp.Token
	if resp.RefreshToken != "" {
		m.refreshToken = resp.RefreshToken
	}
	m.expiry = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	m.log.Info("bearer token obtained", slog.String("grant", grant),
		slog.Time("expiry", m.expiry))
	return true
}

func (m *TokenManager) postGrant(ctx context.Context, payload map[string]string) (*tokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode grant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.AuthURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("grant request rejected: %s", resp.Status)
	}

	var grant tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decode grant response: %w", err)
	}
	if grant.Token == "" || grant.ExpiresIn <= 0 {
		return nil, fmt.Errorf("grant response missing token or expiry")
	}
	return &grant, nil
}

// refreshTokenLocked prefers the server-issued refresh token over the one
// supplied in configuration.
func (m *TokenManager) refreshTokenLocked() string {
	if m.refreshToken != "" {
		return m.refreshToken
	}
	return m.cfg.RefreshToken
}

func (m *TokenManager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = ""
	m.refreshToken = ""
	m.expiry = time.Time{}
}

func logoutEndpoint(authURL string) (string, error) {
	parsed, err := url.Parse(authURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("auth url %q has no origin", authURL)
	}
	return parsed.Scheme + "://" + parsed.Host + "/logout", nil
}
