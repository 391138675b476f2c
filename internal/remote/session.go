package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/autokuma/autokuma/internal/errs"
)

// Credentials bundles §6.2's `kuma.username`/`password`/`mfa_token`/
// `mfa_secret`/`auth_token`.
type Credentials struct {
	Username  string
	Password  string
	MFAToken  string // single-use code supplied directly
	MFASecret string // TOTP seed, derives a code per attempt
	AuthToken string // pre-obtained session token
}

// Session wraps a Client with the login/token lifecycle of §4.5.
type Session struct {
	*Client
	tokenPath string
}

// Open connects and authenticates, preferring a cached token, falling
// back to login_by_token with AuthToken, then to credential login.
// §4.5: "on token rejection, fall back to credential login".
func Open(ctx context.Context, cfg Config, creds Credentials, dataDir string) (*Session, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Session{Client: client, tokenPath: filepath.Join(dataDir, "auth_token")}

	if cached, ok := s.readCachedToken(); ok {
		if err := s.LoginByToken(ctx, cached); err == nil {
			return s, nil
		}
		_ = os.Remove(s.tokenPath)
	}

	if creds.AuthToken != "" {
		if err := s.LoginByToken(ctx, creds.AuthToken); err == nil {
			return s, nil
		}
	}

	if err := s.loginWithCredentials(ctx, creds); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) loginWithCredentials(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return &errs.AuthError{Cause: fmt.Errorf("no cached token and no username/password configured")}
	}
	code := creds.MFAToken
	if code == "" && creds.MFASecret != "" {
		derived, err := deriveTOTP(creds.MFASecret)
		if err != nil {
			return &errs.AuthError{Cause: fmt.Errorf("derive TOTP code: %w", err)}
		}
		code = derived
	}
	token, err := s.Login(ctx, creds.Username, creds.Password, code)
	if err != nil {
		return &errs.AuthError{Cause: err}
	}
	s.cacheToken(token)
	return nil
}

// Login performs username/password (+ optional TOTP) authentication and
// returns the session token.
func (s *Session) Login(ctx context.Context, username, password, totpCode string) (string, error) {
	raw, err := s.Emit(ctx, "login", map[string]any{
		"username": username,
		"password": password,
		"token":    totpCode,
	})
	if err != nil {
		return "", err
	}
	env, _, err := decodeAck(raw)
	if err != nil {
		return "", err
	}
	return env.Token, nil
}

// LoginByToken authenticates with a previously obtained JWT.
func (s *Session) LoginByToken(ctx context.Context, token string) error {
	raw, err := s.Emit(ctx, "loginByToken", token)
	if err != nil {
		return err
	}
	_, _, err = decodeAck(raw)
	return err
}

// Logout ends the session server-side and purges the cached token.
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.Emit(ctx, "logout")
	_ = os.Remove(s.tokenPath)
	return err
}

// StoreToken caches token to disk for reuse across restarts (§4.5),
// file-permissioned per §6.3.
func (s *Session) StoreToken(token string) error {
	return os.WriteFile(s.tokenPath, []byte(strings.TrimSpace(token)), 0o600)
}

func (s *Session) cacheToken(token string) {
	if token == "" {
		return
	}
	_ = s.StoreToken(token)
}

func (s *Session) readCachedToken() (string, bool) {
	raw, err := os.ReadFile(s.tokenPath)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(raw))
	return token, token != ""
}
