package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/danwiki/internal/api/http"
	"github.com/GriffinCanCode/danwiki/internal/api/middleware"
	"github.com/GriffinCanCode/danwiki/internal/api/ws"
	"github.com/GriffinCanCode/danwiki/internal/app"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/tracing"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	app    *app.App
	hub    *ws.Hub
	router *gin.Engine
	logger *logging.Logger
}

// New builds the router for a.
func New(a *app.App) *Server {
	logger := a.Logger.Named("server")
	cfg := a.Config

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(a.Tracer))
	router.Use(monitoring.Middleware(a.Metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		limits := middleware.DefaultRateLimitConfig()
		if cfg.RateLimit.RequestsPerSecond > 0 {
			limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		}
		if cfg.RateLimit.Burst > 0 {
			limits.Burst = cfg.RateLimit.Burst
		}
		logger.Info("Rate limiting enabled",
			zap.Int("rps", limits.RequestsPerSecond),
			zap.Int("burst", limits.Burst),
		)
		router.Use(middleware.RateLimit(limits))
	}

	handlers := apihttp.NewHandlers(a.Store, a.Index, a.Fetcher, a.Metrics, a.Logger)
	handlers.Register(router)

	hub := ws.NewHub(a.Fetcher, a.Metrics, a.Logger)
	router.GET("/ws", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	return &Server{
		app:    a,
		hub:    hub,
		router: router,
		logger: logger,
	}
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.app.Config.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run(ctx, s.app.Fetcher.Events())
		return nil
	})

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server...", zap.Int("ws_clients", s.hub.Clients()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
