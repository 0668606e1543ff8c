// Package session owns the authenticated/unauthenticated state and routes
// between the login, register and itineraries screens.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/logging"
	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/store"
)

// Screen is the top-level view the session allows.
type Screen string

const (
	ScreenLogin       Screen = "login"
	ScreenRegister    Screen = "register"
	ScreenItineraries Screen = "itineraries"
)

// State is the authentication state.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Authenticator is the subset of the gateway the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
	Register(ctx context.Context, email, password string) error
}

// Manager is the single owner of the in-memory session. The credential
// store holds a mirror of its token.
type Manager struct {
	mu        sync.Mutex
	creds     store.CredentialStore
	auth      Authenticator
	logger    *zap.Logger
	now       func() time.Time
	session   *model.Session
	screen    Screen
	listeners []func(Screen)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns an unauthenticated manager.
func NewManager(creds store.CredentialStore, auth Authenticator, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		creds:  creds,
		auth:   auth,
		logger: logging.OrNop(logger),
		now:    time.Now,
		screen: ScreenLogin,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// OnChange registers fn to be called with the new screen after every
// transition. Listeners run synchronously, outside the manager's lock.
func (m *Manager) OnChange(fn func(Screen)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Bootstrap restores a saved token without a server round-trip. The token's
// claims are read unverified: "sub" becomes the placeholder email, and a token
// whose "exp" has passed is discarded. Opaque tokens are trusted until a
// protected call rejects them (see Expire).
func (m *Manager) Bootstrap(ctx context.Context) (Screen, error) {
	token, ok, err := m.creds.Load(ctx)
	if err != nil {
		return m.transition(nil, ScreenLogin), fmt.Errorf("bootstrap: %w", err)
	}
	if !ok {
		m.logger.Debug("no saved token")
		return m.transition(nil, ScreenLogin), nil
	}

	email, expired := m.inspect(token)
	if expired {
		m.logger.Info("saved token expired, discarding")
		if err := m.creds.Clear(ctx); err != nil {
			return m.transition(nil, ScreenLogin), fmt.Errorf("bootstrap: %w", err)
		}
		return m.transition(nil, ScreenLogin), nil
	}

	m.logger.Debug("restored saved token", zap.String("email", email))
	return m.transition(&model.Session{Token: token, User: model.User{Email: email}}, ScreenItineraries), nil
}

// inspect reads the subject and expiry of a JWT without verifying it.
func (m *Manager) inspect(token string) (email string, expired bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", false
	}
	if claims.ExpiresAt != nil && !m.now().Before(claims.ExpiresAt.Time) {
		return claims.Subject, true
	}
	return claims.Subject, false
}

// Login authenticates and persists the token. On failure the state is unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	tok, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.logger.Warn("login failed", zap.String("email", email), zap.String("kind", string(apperr.KindOf(err))))
		return err
	}
	if err := m.creds.Save(ctx, tok.AccessToken); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	m.logger.Info("logged in", zap.String("email", email))
	m.transition(&model.Session{Token: tok.AccessToken, User: model.User{Email: email}}, ScreenItineraries)
	return nil
}

// Register creates an account and routes to the login screen. It does not
// log in.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := m.auth.Register(ctx, email, password); err != nil {
		m.logger.Warn("register failed", zap.String("email", email), zap.String("kind", string(apperr.KindOf(err))))
		return err
	}
	m.logger.Info("registered", zap.String("email", email))
	m.transition(nil, ScreenLogin)
	return nil
}

// ShowRegister switches the unauthenticated view to registration.
func (m *Manager) ShowRegister() error {
	if m.State() == Authenticated {
		return errors.New("already logged in")
	}
	m.transition(nil, ScreenRegister)
	return nil
}

// ShowLogin switches the unauthenticated view to login.
func (m *Manager) ShowLogin() error {
	if m.State() == Authenticated {
		return errors.New("already logged in")
	}
	m.transition(nil, ScreenLogin)
	return nil
}

// Logout clears the in-memory session and the stored token. No server call
// is made. The session is dropped even if clearing the store fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.transition(nil, ScreenLogin)
	if err := m.creds.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Info("logged out")
	return nil
}

// Expire ends the session after a protected call was rejected as
// unauthorized. Other errors are ignored.
func (m *Manager) Expire(ctx context.Context, cause error) {
	if !errors.Is(cause, apperr.ErrUnauthorized) || m.State() != Authenticated {
		return
	}
	m.logger.Warn("session rejected by server, logging out", zap.Error(cause))
	if err := m.Logout(ctx); err != nil {
		m.logger.Error("clear token after expiry", zap.Error(err))
	}
}

// Token returns the bearer token for protected calls.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", false
	}
	return m.session.Token, true
}

// Session returns a copy of the current session.
func (m *Manager) Session() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Unauthenticated
	}
	return Authenticated
}

func (m *Manager) Screen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen
}

func (m *Manager) transition(s *model.Session, screen Screen) Screen {
	m.mu.Lock()
	m.session = s
	m.screen = screen
	listeners := append([]func(Screen){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(screen)
	}
	return screen
}
