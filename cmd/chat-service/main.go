package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/fanout"
	"github.com/cwrk-planet/chat-service/internal/pg"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"
	grpcx "github.com/cwrk-planet/chat-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	lg.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("chat-service stopped with error", "err", err)
		stop()
		log.Fatal(err)
	}
	lg.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *slog.Logger) error {
	// --- postgres ---
	db, err := pg.NewPool(ctx, pg.Config{
		DSN:              cfg.Postgres.DSN,
		MaxConns:         cfg.Postgres.MaxConns,
		MinConns:         cfg.Postgres.MinConns,
		MaxConnLifetime:  cfg.Postgres.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Postgres.MaxConnIdleTime,
		StatementTimeout: cfg.Postgres.StatementTimeout,
		ApplicationName:  cfg.Logging.Service,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	// --- fan-out ---
	broker, err := newBroker(ctx, cfg.Fanout, lg)
	if err != nil {
		return err
	}
	defer func() { _ = broker.Close() }()

	// --- repos ---
	messageRepo := postgres.NewMessageRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	memberRepo := postgres.NewMemberRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// --- services ---
	chatSvc := service.NewChatService(messageRepo, memberRepo, userRepo, broker, lg)
	chatSvc.SetMaxMessageLength(cfg.Chat.MaxMessageLength)
	groupSvc := service.NewGroupService(groupRepo, memberRepo, broker, lg)
	userSvc := service.NewUserService(userRepo)

	// --- auth ---
	var validator *security.JWTValidator
	if path := cfg.Security.JWT.PublicKeyPath; path != "" {
		pub, err := security.LoadRSAPublicKeyFromPEM(path)
		if err != nil {
			return err
		}
		validator = security.NewJWTValidator(pub, cfg.Security.JWT.Issuer, cfg.Security.JWT.Audience, cfg.Security.JWT.ClockSkew)
	}
	auth := security.NewAuthenticator(validator)
	if auth.DevMode() {
		lg.Warn("jwt public key not configured: dev auth via X-User-ID")
	}

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, auth, groupSvc, lg)
	wsServer.SetPingInterval(cfg.HTTP.WSPing)

	// --- HTTP ---
	limiter := httpmw.NewRateLimiter(httpmw.RateLimiterOptions{
		Limit: rate.Limit(cfg.RateLimit.PerSecond),
		Burst: cfg.RateLimit.Burst,
	})
	router := httpx.NewRouter(httpx.Deps{
		Handler:     httpx.NewHandler(chatSvc, groupSvc, userSvc),
		WS:          wsServer.HandleWS,
		Auth:        auth,
		Limiter:     limiter,
		Health:      db,
		Logger:      lg,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	httpSrv := httpx.NewServer(httpx.ServerConfig{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, router)
	httpSrv.OnShutdown(hub.CloseAll)

	// --- gRPC ---
	grpcServer := grpcx.NewServer(lg, cfg.GRPC.CallTimeout)
	health := grpcx.RegisterHealth(grpcServer, db, cfg.GRPC.HealthInterval, lg)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return err
	}

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return broker.Subscribe(gctx, wsServer.Deliver)
	})
	g.Go(func() error {
		limiter.Cleanup(gctx)
		return nil
	})
	g.Go(func() error {
		health.Run(gctx)
		return nil
	})
	g.Go(func() error {
		lg.Info("http listen", "addr", cfg.HTTP.Addr)
		return httpSrv.Run(gctx)
	})
	g.Go(func() error {
		lg.Info("grpc listen", "addr", cfg.GRPC.Addr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newBroker(ctx context.Context, cfg config.Fanout, lg *slog.Logger) (fanout.Broker, error) {
	if cfg.Driver == "redis" {
		return fanout.NewRedisBroker(ctx, cfg.RedisURL, cfg.Channel, lg)
	}
	return fanout.NewMemoryBroker(), nil
}
