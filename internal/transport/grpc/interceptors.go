package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cwrk-planet/chat-service/pkg/logger"
)

const DefaultCallTimeout = 10 * time.Second

// UnaryServerInterceptor: deadline по умолчанию, recover в codes.Internal, лог вызова.
func UnaryServerInterceptor(log *slog.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	log = logger.Component(log, "grpc")
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = panicToStatus(log, info.FullMethod, r)
			}
			logCall(ctx, log, "unary", info.FullMethod, start, err)
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	log = logger.Component(log, "grpc")
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = panicToStatus(log, info.FullMethod, r)
			}
			logCall(ss.Context(), log, "stream", info.FullMethod, start, err)
		}()

		return handler(srv, ss)
	}
}

func panicToStatus(log *slog.Logger, method string, r any) error {
	log.Error("grpc panic", "method", method, "panic", r, "stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal server error")
}

// logCall: серверные ошибки - error, остальное - debug.
// Health Watch висит часами, его завершение не интересно.
func logCall(ctx context.Context, log *slog.Logger, kind, method string, start time.Time, err error) {
	code := status.Code(err)
	if kind == "stream" && strings.HasPrefix(method, "/grpc.health.") && code == codes.Canceled {
		return
	}

	lvl := slog.LevelDebug
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		lvl = slog.LevelError
	}
	log.Log(ctx, lvl, "grpc "+kind,
		"method", method,
		"dur_ms", time.Since(start).Milliseconds(),
		"code", code.String())
}
