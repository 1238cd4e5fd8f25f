package grpcx

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cwrk-planet/chat-service/pkg/logger"
)

// ServiceName - имя сервиса в health-протоколе; "" отвечает за весь сервер.
const ServiceName = "chat.v1.ChatService"

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health - стандартный grpc.health.v1, статус следует за доступностью БД.
type Health struct {
	srv      *health.Server
	db       Pinger
	interval time.Duration
	log      *slog.Logger
}

func NewServer(log *slog.Logger, timeout time.Duration) *grpc.Server {
	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log, timeout)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(log)),
	)
}

func RegisterHealth(s *grpc.Server, db Pinger, interval time.Duration, log *slog.Logger) *Health {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h := &Health{
		srv:      health.NewServer(),
		db:       db,
		interval: interval,
		log:      logger.Component(log, "health"),
	}
	healthpb.RegisterHealthServer(s, h.srv)
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Run пингует БД каждые interval до отмены ctx, затем переводит сервис в NOT_SERVING.
func (h *Health) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *Health) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, h.interval/2)
	defer cancel()

	if err := h.db.Ping(pctx); err != nil {
		h.log.Warn("db ping failed", "err", err)
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
}

func (h *Health) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(ServiceName, st)
}
