package server

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

const (
	AuthorizePath = "/authorize"
	CallbackPath  = "/callback"
)

//go:embed templates/authorize.html
var authorizePage string

var authorizeTmpl = template.Must(template.New("authorize").Parse(authorizePage))

type authorizeData struct {
	AppName        string
	AppBuild       string
	DeveloperToken string
	State          string
	CallbackPath   string
}

// AuthorizeResult contains the result of a browser authorization.
type AuthorizeResult struct {
	UserToken string
	err       error
}

func (a *AuthorizeResult) Error() error {
	return a.err
}

// AuthorizeHandler serves the MusicKit sign-in page and receives the user token it produces.
// Implements the Handler interface for registration with a Router.
type AuthorizeHandler struct {
	data        authorizeData
	state       string
	logger      *log.Logger
	resultChan  chan AuthorizeResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewAuthorizeHandler creates a handler for cfg's developer token and application identity.
// The state token should be random; the callback rejects any other.
func NewAuthorizeHandler(cfg session.Config, state string, logger *log.Logger) *AuthorizeHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthorizeHandler{
		data: authorizeData{
			AppName:        cfg.App.Name,
			AppBuild:       cfg.App.Build,
			DeveloperToken: cfg.DeveloperToken,
			State:          state,
			CallbackPath:   CallbackPath,
		},
		state:      state,
		logger:     logger,
		resultChan: make(chan AuthorizeResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthorizeHandler) Routes() []string {
	return []string{AuthorizePath, CallbackPath}
}

// ServeHTTP dispatches on path.
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case AuthorizePath:
		h.page(w, r)
	case CallbackPath:
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthorizeHandler) page(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := authorizeTmpl.Execute(w, h.data); err != nil {
		h.logger.Error("failed to render authorize page", "error", err)
	}
}

// callback validates the state parameter and sends the posted user token through the result channel.
func (h *AuthorizeHandler) callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		h.Send(AuthorizeResult{err: fmt.Errorf("invalid callback body: %w", err)})
		http.Error(w, "Invalid callback body", http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("state") != h.state {
		h.Send(AuthorizeResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		err := fmt.Errorf("authorization failed: %s", r.PostForm.Get("error"))
		h.Send(AuthorizeResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(AuthorizeResult{UserToken: token})
	w.WriteHeader(http.StatusNoContent)
}

// Send sends the authorization result through the channel (only once).
func (h *AuthorizeHandler) Send(result AuthorizeResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving authorization completion.
//
// Channel will receive exactly one result and then be closed.
func (h *AuthorizeHandler) Result() <-chan AuthorizeResult {
	return h.resultChan
}
