// Package http exposes the ledger engine as a JSON API.
//
// Every /api route acts for the user named by the X-User-ID header, which an
// upstream proxy is trusted to have authenticated. Each request opens its
// own ledger view, reads or mutates through it and closes it again.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/connections"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/store"
)

// HeaderUserID names the caller.
const HeaderUserID = "X-User-ID"

// Deps is what the server needs from the rest of the application.
type Deps struct {
	Records    store.RecordStore
	Directory  *connections.Directory
	Converter  core.Converter
	EditPolicy core.EditPolicy
	// Ready backs /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// RequestTimeout bounds every /api request. Zero disables it.
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config
	// TrustedProxies are extra CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string
	Logger         *log.Logger
	// Now defaults the summary window and new expense dates.
	Now func() time.Time
}

type Server struct {
	http.Server

	records        store.RecordStore
	directory      *connections.Directory
	conv           core.Converter
	policy         core.EditPolicy
	ready          func(ctx context.Context) error
	requestTimeout time.Duration
	logger         *log.Logger
	now            func() time.Time

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		records:        deps.Records,
		directory:      deps.Directory,
		conv:           deps.Converter,
		policy:         deps.EditPolicy,
		ready:          deps.Ready,
		requestTimeout: deps.RequestTimeout,
		logger:         deps.Logger,
		now:            deps.Now,
		limiter:        ratelimit.NewLimiter(deps.RateLimit),
		detector:       security.NewDetector(),
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err.Error())
		}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.policy == "" {
		s.policy = core.PolicyDrift
	}
	if s.conv.PrimaryToSecondary.IsZero() && s.conv.SecondaryToPrimary.IsZero() {
		s.conv = core.DefaultConverter()
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/expenses", s.withUser(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withUser(s.handleCreateExpense))
	mux.HandleFunc("PATCH /api/expenses/{id}", s.withUser(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withUser(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/summary", s.withUser(s.handleSummary))
	mux.HandleFunc("GET /api/export", s.withUser(s.handleExport))

	mux.HandleFunc("GET /api/connections", s.withUser(s.handleListConnections))
	mux.HandleFunc("POST /api/connections", s.withUser(s.handleAddConnection))
	mux.HandleFunc("DELETE /api/connections/{id}", s.withUser(s.handleRemoveConnection))

	mux.HandleFunc("POST /api/convert", s.withUser(s.handleConvert))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.handleRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestMiddleware(s.logger, trace.FromRequest)(h)
	h = trace.NewMiddleware().Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the HTTP server and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser rejects requests without a caller id, bounds the request with
// the configured timeout and makes sure the caller has a profile.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeInput(r.Header.Get(HeaderUserID))
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + HeaderUserID + " header"})
			return
		}

		ctx := r.Context()
		if s.requestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
			defer cancel()
		}
		r = r.WithContext(log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID)))

		if _, err := s.directory.Fetch(r.Context(), userID); err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, userID)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, s.readiness("unavailable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, s.readiness("ready"))
}

func (s *Server) readiness(status string) readyResponse {
	m := s.limiter.GetMetrics()
	return readyResponse{
		Status:             status,
		RateLimited:        m.Rejected,
		RateLimitClients:   m.ClientCount,
		SuspiciousRequests: s.detector.SuspiciousRequests(),
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, please try again later"})
}
