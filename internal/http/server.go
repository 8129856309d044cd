package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"budgetadvisor/internal/cache"
	"budgetadvisor/internal/log"
	"budgetadvisor/internal/middleware/ratelimit"
	"budgetadvisor/internal/middleware/security"
	"budgetadvisor/internal/middleware/trace"
	"budgetadvisor/internal/services"
	appweb "budgetadvisor/web"
)

// Pinger is checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators a Server needs.
type Dependencies struct {
	Credentials *services.CredentialService
	Advice      *services.AdviceService
	Sessions    *SessionManager
	// Store is pinged by /readyz; nil skips the check.
	Store  Pinger
	Logger *log.Logger
}

// Options tune the server.
type Options struct {
	Addr               string
	HistoryLimit       int
	RateLimitPerMinute int
}

type appMetrics struct {
	uptime        time.Time
	evaluations   atomic.Int64
	savedAdvice   atomic.Int64
	logins        atomic.Int64
	loginFailures atomic.Int64
	registrations atomic.Int64
}

type Server struct {
	http.Server
	templates *template.Template

	credentials *services.CredentialService
	advice      *services.AdviceService
	sessions    *SessionManager
	store       Pinger
	logger      *log.Logger

	historyLimit int

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates, wires middleware and routes, and
// starts the background cache cleanup. Call Shutdown to release it.
func NewServer(opts Options, deps Dependencies) (*Server, error) {
	if deps.Credentials == nil || deps.Advice == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("http server: credentials, advice and sessions are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:        t,
		credentials:      deps.Credentials,
		advice:           deps.Advice,
		sessions:         deps.Sessions,
		store:            deps.Store,
		logger:           logger,
		historyLimit:     opts.HistoryLimit,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		cacheManager:     cache.NewManager(logger.Logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(deps.Advice.CacheCleaner())
	s.cacheManager.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	advisorLog := log.ComponentMiddleware(log.ComponentAdvisor)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /advice", advisorLog(http.HandlerFunc(s.handleAdvice)))
	mux.Handle("GET /history", log.ComponentMiddleware(log.ComponentHistory)(http.HandlerFunc(s.handleHistory)))
	mux.HandleFunc("GET /rules", s.handleRules)

	authLog := log.ComponentMiddleware(log.ComponentAuth)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", authLog(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.Handle("POST /register", authLog(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /logout", authLog(http.HandlerFunc(s.handleLogout)))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited, http.MethodPost)(h)
	h = s.sessions.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detectSuspicious(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// detectSuspicious logs and counts suspicious requests; it never blocks.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	TooManyRequestsError("Rate limit exceeded. Please try again later.").Write(w)
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			"template", name,
			log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) renderPartial(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Close releases background goroutines without serving; used by tests and
// by callers that never called ListenAndServe.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
