package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gymportal/internal/auth"
	"gymportal/internal/billing"
	"gymportal/internal/config"
	"gymportal/internal/gym"
	"gymportal/internal/logger"
	"gymportal/internal/reception"
	"gymportal/internal/subscription"
	"gymportal/internal/user"

	"github.com/gin-gonic/gin"
	gorillaHandlers "github.com/gorilla/handlers"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	User         *user.Handler
	Gym          *gym.Handler
	Reception    *reception.Handler
	Subscription *subscription.Handler
	Billing      *billing.WebhookHandler
	System       *SystemHandler
}

type Server struct {
	router  *gin.Engine
	http    *http.Server
	limiter *clientLimiter
	config  *config.Config
}

func New(cfg *config.Config, verifier auth.Verifier, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(), MetricsMiddleware())

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	if h.System != nil {
		router.GET("/ready", h.System.Ready)
	}

	limiter := newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, clientIdleTTL)

	apiGroup := router.Group("/api")
	apiGroup.Use(limiter.Middleware())

	apiGroup.POST("/billing/webhook", h.Billing.Handle)
	apiGroup.GET("/subscription/plans", h.Subscription.ListPlans)

	protected := apiGroup.Group("/")
	protected.Use(auth.AuthMiddleware(verifier))
	{
		protected.GET("/me", h.User.GetMe)
		protected.POST("/gym/ensure", h.Gym.Ensure)
		protected.GET("/gym/ensure", h.Gym.Get)
		protected.GET("/subscription/status", h.Subscription.Status)

		protected.POST("/admin/create-reception-user", h.Reception.Create)
		protected.GET("/admin/reception-users", h.Reception.List)
		protected.DELETE("/admin/reception-users/:userID", h.Reception.Remove)
	}

	platformAdmin := protected.Group("/admin")
	platformAdmin.Use(auth.RequireAdmin(cfg.AdminEmails))
	{
		platformAdmin.POST("/assign-plan", h.Subscription.AssignPlan)
	}

	s := &Server{
		router:  router,
		limiter: limiter,
		config:  cfg,
	}
	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler is the router wrapped with proxy header, CORS and gzip handling.
func (s *Server) Handler() http.Handler {
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(s.config.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.AllowCredentials(),
	)
	return gorillaHandlers.ProxyHeaders(cors(gorillaHandlers.CompressHandler(s.router)))
}

func (s *Server) Start() error {
	logger.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the rate limiter's janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Close()
	return s.http.Shutdown(ctx)
}
