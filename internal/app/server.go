// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"frontdesk-gateway/internal/backend"
	"frontdesk-gateway/internal/config"
	"frontdesk-gateway/internal/db"
	authHandler "frontdesk-gateway/internal/handlers/auth"
	pagesHandler "frontdesk-gateway/internal/handlers/pages"
	proxyHandler "frontdesk-gateway/internal/handlers/proxy"
	wsHandler "frontdesk-gateway/internal/handlers/websocket"
	"frontdesk-gateway/internal/middleware"
	"frontdesk-gateway/internal/pkg/csrf"
	"frontdesk-gateway/internal/pkg/jwt"
	"frontdesk-gateway/internal/pkg/session"
	"frontdesk-gateway/internal/repository/postgres"
	authUsecase "frontdesk-gateway/internal/service/auth"
	"frontdesk-gateway/internal/service/monitor"
	"frontdesk-gateway/internal/service/scheduler"
	"frontdesk-gateway/internal/websocket"
	wsHandlers "frontdesk-gateway/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg       config.AppConfig
	engine    *gin.Engine
	http      *http.Server
	logger    *zap.Logger
	redis     *redis.Client
	pool      *pgxpool.Pool
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
	stopHub   context.CancelFunc
}

// NewServer connects the stores and wires every component. Nothing listens
// until Start.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, engine: gin.New(), logger: logger}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return nil, err
	}
	s.redis = redisClient
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	// ----- PostgreSQL (optional audit trail) -----
	var recorder session.Recorder = session.NopRecorder{}
	if cfg.DatabaseURL != "" {
		pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			s.close()
			return nil, err
		}
		s.pool = pool

		sessionRepo := postgres.NewSessionRepository(postgres.NewDB(pool))
		if err := sessionRepo.EnsureSchema(ctx); err != nil {
			s.close()
			return nil, err
		}
		recorder = sessionRepo
		logger.Info("session audit trail enabled")
	} else {
		logger.Warn("DATABASE_URL not set, session audit trail disabled")
	}

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(cfg.JWT)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient, recorder, logger)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(logger)
	s.hub.RegisterHandler(wsHandlers.NewActivityHandler())
	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go s.hub.Run(hubCtx)

	// ----- Services (Usecases) -----
	backendClient := backend.NewClient(cfg.APIURL, cfg.BackendTimeout)
	authService := authUsecase.NewAuthService(
		backendClient,
		sessionManager,
		jwtManager,
		rateLimiter,
		s.hub,
		cfg.Session.MaxAge,
		logger,
	)

	s.scheduler = scheduler.New(scheduler.NewRegistry(), authService, s.hub, scheduler.Config{
		Lead:     cfg.Session.RefreshLead,
		Cooldown: cfg.Session.Cooldown,
		Timeout:  cfg.BackendTimeout,
	}, logger)
	authService.AttachScheduler(s.scheduler)

	sessionMonitor := monitor.New(authService, monitor.Config{
		ProbeInterval: cfg.ProbeInterval,
		IdleTimeout:   cfg.IdleTimeout,
		Timeout:       cfg.BackendTimeout,
	}, logger)

	// ----- CSRF -----
	var csrfStore csrf.Store
	switch cfg.CSRFStore {
	case "memory":
		csrfStore = csrf.NewMemoryStore(cfg.Session.MaxAge)
	default:
		csrfStore = csrf.NewRedisStore(redisClient, cfg.Session.MaxAge)
	}
	authService.AttachCSRF(csrfStore)

	// ----- Handlers -----
	cookie := middleware.NewSessionCookie(cfg.IsProduction())
	authMiddleware := middleware.NewAuthMiddleware(authService, cookie)
	csrfMiddleware := middleware.NewCSRFMiddleware(middleware.CSRFMode(cfg.CSRFMode), csrfStore, authMiddleware, logger)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.RouteGuard(authService, cookie),
		csrfMiddleware.Handle(),
	)

	handlers := &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, cookie, csrfStore, logger),
		ProxyHandler:   proxyHandler.NewProxyHandler(cfg.APIURL, authService, nil, logger),
		PagesHandler:   pagesHandler.NewPagesHandler(cfg.StaticDir),
		WSHandler:      wsHandler.NewWebSocketHandler(s.hub, authService, sessionMonitor, logger),
		Health:         &healthHandler{redis: redisClient, pool: s.pool, hub: s.hub, scheduler: s.scheduler},
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, handlers)

	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start serves HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr), zap.String("env", s.cfg.Env))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP, drops every pending refresh timer, closes open
// sockets and releases the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	cleared := s.scheduler.ClearAll()
	s.logger.Info("refresh timers cleared", zap.Int("count", cleared))

	s.close()
	return err
}

func (s *Server) close() {
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
