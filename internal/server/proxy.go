package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/services"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

const (
	SongsPath           = "/api/songs"
	RecommendationsPath = "/api/recommendations"

	songsEndpoint           = "/v1/me/library/songs"
	recommendationsEndpoint = "/v1/me/recommendations"

	missingTokenMessage = "Music User Token is required"
)

// Forwarder performs a vendor GET with the server-held developer token. Implemented by [services.MusicService].
type Forwarder interface {
	Forward(ctx context.Context, endpoint string, query url.Values, userToken string) (*services.APIResponse, error)
}

// ProxyHandler forwards the two library read endpoints to the vendor.
type ProxyHandler struct {
	vendor Forwarder
	logger *log.Logger
}

// NewProxyHandler creates a proxy over vendor.
func NewProxyHandler(vendor Forwarder, logger *log.Logger) *ProxyHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProxyHandler{vendor: vendor, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ProxyHandler) Routes() []string {
	return []string{SongsPath, RecommendationsPath}
}

// ServeHTTP dispatches on path.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case SongsPath:
		h.songs(w, r)
	case RecommendationsPath:
		h.recommendations(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ProxyHandler) songs(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(services.UserTokenHeader)
	if token == "" {
		http.Error(w, missingTokenMessage, http.StatusBadRequest)
		return
	}

	h.forward(w, r, songsEndpoint, passThrough(r.URL.Query(), "limit", "offset"), token)
}

func (h *ProxyHandler) recommendations(w http.ResponseWriter, r *http.Request) {
	query := passThrough(r.URL.Query(), "ids", "limit", "offset")
	h.forward(w, r, recommendationsEndpoint, query, r.Header.Get(services.UserTokenHeader))
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, endpoint string, query url.Values, token string) {
	resp, err := h.vendor.Forward(r.Context(), endpoint, query, token)
	if err != nil {
		h.logger.Error("proxy request failed", "endpoint", endpoint, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Error("vendor rejected proxy request", "endpoint", endpoint, "status", resp.StatusCode, "body", string(resp.Body))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		h.logger.Warn("failed to write proxy response", "endpoint", endpoint, "error", err)
	}
}

// passThrough copies the named parameters that are present in src.
func passThrough(src url.Values, names ...string) url.Values {
	out := url.Values{}
	for _, name := range names {
		if v, ok := src[name]; ok {
			out[name] = v
		}
	}
	return out
}
