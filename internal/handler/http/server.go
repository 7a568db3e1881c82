package http

import (
	"SnapLink-Backend/internal/analytics"
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/internal/service"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server ties the handlers, middleware and rate limiters together.
type Server struct {
	authHandlers     *auth.AuthHandlers
	urlsHandler      *URLsHandler
	redirectHandler  *RedirectHandler
	analyticsHandler *AnalyticsHandler
	healthHandler    *HealthHandler
	authMiddleware   *auth.Middleware
	createLimiter    *ipLimiter
	registerLimiter  *ipLimiter
	log              *zap.Logger
}

func NewServer(
	storage repository.Storage,
	db *gorm.DB,
	urlShortener *service.URLShortenerService,
	resolver *service.Resolver,
	recorder *analytics.Recorder,
	aggregator *analytics.Aggregator,
	jwtService *auth.JWTService,
	passwordService *auth.PasswordService,
	rateLimits *config.RateLimit,
	log *zap.Logger,
) *Server {
	return &Server{
		authHandlers:     auth.NewAuthHandlers(storage, jwtService, passwordService, log),
		urlsHandler:      NewURLsHandler(storage, urlShortener, log),
		redirectHandler:  NewRedirectHandler(resolver, recorder, log),
		analyticsHandler: NewAnalyticsHandler(storage, aggregator, log),
		healthHandler:    NewHealthHandler(db, recorder, log),
		authMiddleware:   auth.NewMiddleware(jwtService, log),
		createLimiter:    newIPLimiter(rateLimits.CreatePerMinute, log),
		registerLimiter:  newIPLimiter(rateLimits.RegisterPerMinute, log),
		log:              log,
	}
}

// SetupRoutes builds the route table. The public redirect is registered last
// as the catch-all.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)

	mux.HandleFunc("/api/auth/register", s.withCORS(s.registerLimiter.limit(s.authHandlers.Register)))
	mux.HandleFunc("/api/auth/login", s.withCORS(s.authHandlers.Login))

	// Creation is open to anonymous callers with a reduced feature set, so it
	// gets optional auth plus the per-IP limit. Listing requires a session.
	mux.HandleFunc("/api/urls", s.withCORS(s.handleURLCollection))
	mux.HandleFunc("/api/urls/", s.withCORS(s.authMiddleware.RequireAuth(s.handleURLItem)))

	mux.HandleFunc("/api/analytics/overview", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.GetOverview)))
	mux.HandleFunc("/api/analytics/", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.GetURLAnalytics)))

	mux.HandleFunc("/api/redirect/", s.withCORS(s.redirectHandler.HandleResolve))

	mux.HandleFunc("/", s.redirectHandler.HandleRedirect)

	return mux
}

// handleURLCollection dispatches /api/urls by method.
func (s *Server) handleURLCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createLimiter.limit(s.authMiddleware.OptionalAuth(s.urlsHandler.CreateURL))(w, r)
	case http.MethodGet:
		s.authMiddleware.RequireAuth(s.urlsHandler.ListURLs)(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleURLItem dispatches /api/urls/{id} and /api/urls/{id}/qr.
func (s *Server) handleURLItem(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/qr") {
		s.urlsHandler.RegenerateQR(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.urlsHandler.GetURL(w, r)
	case http.MethodDelete:
		s.urlsHandler.DeleteURL(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}

// isSystemPath reports whether a path belongs to the API surface rather than
// the redirect catch-all.
func isSystemPath(path string) bool {
	systemPaths := []string{
		"/api/",
		"/health",
		"/ready",
	}
	for _, systemPath := range systemPaths {
		if strings.HasPrefix(path, systemPath) {
			return true
		}
	}
	return false
}
