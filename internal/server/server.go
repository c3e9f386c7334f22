package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"github.com/dukerupert/motiveme/internal/handler"
	"github.com/dukerupert/motiveme/internal/metrics"
	"github.com/dukerupert/motiveme/internal/middleware"
	"github.com/dukerupert/motiveme/internal/notify"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/sweep"
	ws "github.com/dukerupert/motiveme/internal/websocket"
)

// Options are the settings the router and handlers need from configuration.
type Options struct {
	AllowedOrigins []string
	SessionTTL     time.Duration
	SecureCookies  bool
	MetricsEnabled bool

	// DefaultZone applies to new challenges whose request names no time zone.
	DefaultZone *time.Location
}

type Server struct {
	db            *sql.DB
	opts          Options
	hub           *ws.Hub
	metrics       *metrics.Metrics
	notifier      *notify.Notifier
	sweeper       *sweep.Sweeper
	authH         *handler.AuthHandler
	userH         *handler.UserHandler
	challengeH    *handler.ChallengeHandler
	checkInH      *handler.CheckInHandler
	notificationH *handler.NotificationHandler
	witnessH      *handler.WitnessHandler
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, mailer notify.Mailer, opts Options, logger *slog.Logger) *Server {
	if opts.DefaultZone == nil {
		opts.DefaultZone = time.Local
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New()
	m.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "motiveme_websocket_clients",
		Help: "Open websocket connections",
	}, func() float64 { return float64(hub.ClientCount()) }))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	challengeStore := store.NewChallengeStore(db)
	linkStore := store.NewWitnessLinkStore(db)
	checkInStore := store.NewCheckInStore(db)
	notificationStore := store.NewNotificationStore(db)
	badgeStore := store.NewBadgeStore(db)

	notifier := notify.New(notificationStore, userStore, badgeStore, linkStore, hub, mailer, m, logger.With("component", "notify"))
	sweeper := sweep.New(challengeStore, userStore, notifier, m, logger.With("component", "sweep"))

	return &Server{
		db:            db,
		opts:          opts,
		hub:           hub,
		metrics:       m,
		notifier:      notifier,
		sweeper:       sweeper,
		authH:         handler.NewAuthHandler(userStore, sessionStore, opts.SessionTTL, opts.SecureCookies, logger.With("component", "auth")),
		userH:         handler.NewUserHandler(userStore, badgeStore, challengeStore, sweeper, logger.With("component", "user")),
		challengeH:    handler.NewChallengeHandler(challengeStore, linkStore, userStore, sweeper, notifier, m, opts.DefaultZone, logger.With("component", "challenge")),
		checkInH:      handler.NewCheckInHandler(checkInStore, logger.With("component", "check_in")),
		notificationH: handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		witnessH:      handler.NewWitnessHandler(linkStore, challengeStore, userStore, sweeper, logger.With("component", "witness")),
		userStore:     userStore,
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// Sweeper returns the challenge sweeper for scheduled jobs.
func (s *Server) Sweeper() *sweep.Sweeper {
	return s.sweeper
}

// Notifier returns the notifier so shutdown can wait for queued emails.
func (s *Server) Notifier() *notify.Notifier {
	return s.notifier
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Router builds the HTTP handler. Every route lives on one mux so the
// metrics middleware sees the matched pattern; protected routes wrap their
// handler in RequireAuth individually.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("POST /api/auth/signup", s.rateLimited(s.authH.Signup))
	mux.Handle("POST /api/auth/signin", s.rateLimited(s.authH.Signin))
	mux.HandleFunc("GET /witness/{token}", s.witnessH.View)
	if s.opts.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.registerProtectedRoutes(mux)

	var h http.Handler = s.metrics.Middleware(mux)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	if len(s.opts.AllowedOrigins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.sessionStore, s.userStore)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	handle("POST /api/auth/signout", s.authH.Signout)

	handle("GET /api/me", s.userH.Me)
	handle("PATCH /api/me", s.userH.UpdateMe)
	handle("DELETE /api/me", s.authH.DeleteAccount)
	handle("GET /api/stats", s.userH.Stats)
	handle("GET /api/badges", s.userH.Badges)

	handle("GET /api/challenges", s.challengeH.List)
	handle("POST /api/challenges", s.challengeH.Create)
	handle("GET /api/challenges/{id}", s.challengeH.Get)
	handle("PATCH /api/challenges/{id}", s.challengeH.Update)
	handle("DELETE /api/challenges/{id}", s.challengeH.Delete)
	handle("POST /api/challenges/{id}/check-in", s.challengeH.CheckIn)

	handle("GET /api/check-ins", s.checkInH.List)

	handle("GET /api/notifications", s.notificationH.List)
	handle("PATCH /api/notifications/{id}", s.notificationH.Update)

	handle("GET /ws", ws.HandleWebSocket(s.hub, originHosts(s.opts.AllowedOrigins)))
}

// originHosts turns CORS origins into the host patterns the websocket
// origin check expects.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			hosts = append(hosts, o)
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.ByIP, 10, time.Minute)(h)
}
