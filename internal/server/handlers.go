package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type resolveResponse struct {
	Matched bool   `json:"matched"`
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	URI     string `json:"uri,omitempty"`
	URL     string `json:"url"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Mode           string `json:"mode"`
	TokenHeld      bool   `json:"token_held"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps lookup errors to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrTokenAcquisition):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// LookupHandler serves /resolve (classification only) and /search (full dispatch).
//
// /search writes the Spotify response body verbatim, keeping the upstream status
// for error-shaped bodies.
type LookupHandler struct {
	client  services.Lookuper
	history tasks.HistoryRecorder
	logger  *log.Logger
}

// NewLookupHandler creates a LookupHandler. history may be nil.
func NewLookupHandler(client services.Lookuper, history tasks.HistoryRecorder, logger *log.Logger) *LookupHandler {
	return &LookupHandler{client: client, history: history, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *LookupHandler) Routes() []string {
	return []string{"/resolve", "/search"}
}

func (h *LookupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	switch r.URL.Path {
	case "/resolve":
		h.resolve(w, q)
	case "/search":
		h.search(w, r, q)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *LookupHandler) resolve(w http.ResponseWriter, q string) {
	ref := h.client.Classify(q)
	writeJSON(w, http.StatusOK, resolveResponse{
		Matched: h.client.Resolve(q),
		Kind:    ref.Kind.String(),
		ID:      ref.ID,
		URI:     ref.URI(),
		URL:     ref.URL(),
	})
}

func (h *LookupHandler) search(w http.ResponseWriter, r *http.Request, q string) {
	result, err := h.client.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("lookup failed", "q", q, "err", err)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	status := http.StatusOK
	if result.APIError() != "" {
		status = http.StatusBadGateway
		if code := apiErrorStatus(result); code != 0 {
			status = code
		}
	} else if err := tasks.Record(h.history, q, result); err != nil {
		h.logger.Warn("history not recorded", "q", q, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Spotx-Kind", result.Ref.Kind.String())
	w.WriteHeader(status)
	w.Write(result.Data)
}

func apiErrorStatus(r *services.Result) int {
	var body struct {
		Error struct {
			Status int `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(r.Data, &body); err != nil {
		return 0
	}
	if body.Error.Status < 400 || body.Error.Status > 599 {
		return 0
	}
	return body.Error.Status
}

// HealthHandler serves /healthz with the client's auth mode and token state.
type HealthHandler struct {
	tokens  services.TokenReporter
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(tokens services.TokenReporter) *HealthHandler {
	return &HealthHandler{tokens: tokens, started: time.Now(), now: time.Now}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Service:       "spotx",
		Mode:          h.tokens.Mode().String(),
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
	}
	if exp, ok := h.tokens.TokenExpiry(); ok {
		resp.TokenHeld = true
		resp.TokenExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// APIClient is what the lookup API needs from the Spotify client.
type APIClient interface {
	services.Lookuper
	services.TokenReporter
}

// APIOptions are the dependencies of [NewAPI].
type APIOptions struct {
	Client   APIClient
	History  tasks.HistoryRecorder
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

// NewAPI builds the lookup API router: /resolve, /search, /healthz and, when a
// gatherer is set, /metrics.
func NewAPI(opts APIOptions) *LookupRouter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	logger := shared.WithLogger(opts.Logger, "component", "server")

	router := NewLookupRouter()
	router.Use(RecoverMiddleware(logger), LoggingMiddleware(logger))

	router.Handler(NewLookupHandler(opts.Client, opts.History, logger))
	router.Handler(NewHealthHandler(opts.Client))

	if opts.Gatherer != nil {
		router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return router
}
