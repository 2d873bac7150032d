// package session holds the developer and user credentials for the lifetime of the process
//
// A [Provider] is constructed once and handed to every consumer that needs credentials. Authorization runs at
// most once; when a user token is already configured no authorization happens at all.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// ErrNotReady is returned while no user token is available.
var ErrNotReady = errors.New("session not ready")

// Identity describes the application to the vendor SDK.
type Identity struct {
	Name  string `json:"name"`
	Build string `json:"build"`
}

// Config is the input to a [Provider].
type Config struct {
	DeveloperToken string
	UserToken      string
	App            Identity
}

// Session is what consumers receive once the provider is ready.
type Session struct {
	DeveloperToken string
	UserToken      string
	App            Identity
}

// Authorizer obtains a user token interactively.
type Authorizer interface {
	Authorize(ctx context.Context, cfg Config) (string, error)
}

// AuthorizerFunc adapts a function to [Authorizer].
type AuthorizerFunc func(ctx context.Context, cfg Config) (string, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, cfg Config) (string, error) { return f(ctx, cfg) }

// StaticAuthorizer returns a fixed token.
type StaticAuthorizer struct {
	Token string
}

func (s StaticAuthorizer) Authorize(ctx context.Context, cfg Config) (string, error) {
	if s.Token == "" {
		return "", fmt.Errorf("%w: no music user token configured", shared.ErrNotAuthenticated)
	}
	return s.Token, nil
}

// PersistingAuthorizer passes the token obtained by Authorizer to Save.
//
// A failing Save is logged; the token is still returned.
type PersistingAuthorizer struct {
	Authorizer Authorizer
	Save       func(token string) error
	Logger     *log.Logger
}

func (p PersistingAuthorizer) Authorize(ctx context.Context, cfg Config) (string, error) {
	token, err := p.Authorizer.Authorize(ctx, cfg)
	if err != nil {
		return "", err
	}

	if p.Save != nil {
		if err := p.Save(token); err != nil && p.Logger != nil {
			p.Logger.Warn("failed to persist music user token", "error", err)
		}
	}
	return token, nil
}

// Provider resolves a [Session] exactly once.
type Provider struct {
	cfg    Config
	auth   Authorizer
	logger *log.Logger

	once  sync.Once
	ready chan struct{}

	mu      sync.RWMutex
	session *Session
	err     error
}

// NewProvider creates a provider. auth may be nil when cfg already carries a user token.
func NewProvider(cfg Config, auth Authorizer, logger *log.Logger) *Provider {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Provider{
		cfg:    cfg,
		auth:   auth,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Start configures the session and, when needed, triggers authorization in the background.
//
// Only the first call has any effect. Ready is closed when the attempt finishes, successfully or not.
func (p *Provider) Start(ctx context.Context) {
	p.once.Do(func() {
		if p.cfg.DeveloperToken == "" {
			p.resolve(nil, fmt.Errorf("%w: developer token is required", shared.ErrMissingCredentials))
			return
		}

		if p.cfg.UserToken != "" {
			p.resolve(p.newSession(p.cfg.UserToken), nil)
			return
		}

		if p.auth == nil {
			p.resolve(nil, fmt.Errorf("%w: no authorizer configured", shared.ErrNotAuthenticated))
			return
		}

		go func() {
			token, err := p.auth.Authorize(ctx, p.cfg)
			if err != nil {
				p.resolve(nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err))
				return
			}
			if token == "" {
				p.resolve(nil, fmt.Errorf("%w: authorizer returned an empty token", shared.ErrAuthFailed))
				return
			}
			p.resolve(p.newSession(token), nil)
		}()
	})
}

func (p *Provider) newSession(userToken string) *Session {
	return &Session{DeveloperToken: p.cfg.DeveloperToken, UserToken: userToken, App: p.cfg.App}
}

func (p *Provider) resolve(s *Session, err error) {
	p.mu.Lock()
	p.session, p.err = s, err
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("session setup failed", "error", err)
	} else {
		p.logger.Debug("session ready", "app", s.App.Name)
	}
	close(p.ready)
}

// Ready is closed once the session attempt has finished.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// Wait starts the provider if needed and blocks until it resolves or ctx is done.
func (p *Provider) Wait(ctx context.Context) (*Session, error) {
	p.Start(ctx)

	select {
	case <-p.ready:
		return p.Current()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Current returns the session without blocking. It returns [ErrNotReady] (joined with the setup failure,
// if any) while no user token is available.
func (p *Provider) Current() (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.session == nil || p.session.UserToken == "" {
		if p.err != nil {
			return nil, errors.Join(ErrNotReady, p.err)
		}
		return nil, ErrNotReady
	}
	return p.session, nil
}
