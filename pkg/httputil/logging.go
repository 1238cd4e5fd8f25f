package httputil

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cwrk-planet/chat-service/pkg/logger"
)

type ctxLoggerKey int

const loggerKey ctxLoggerKey = iota

// RequestLogger кладёт логгер запроса в контекст и пишет access log.
// Уровень по статусу: 5xx - error, 4xx - warn.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logger.L()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID, _ := FromContext(r.Context())

			l := base.With(
				slog.String("req_id", reqID),
				slog.String("path", r.URL.Path),
				slog.String("method", r.Method),
			)
			ctx := context.WithValue(r.Context(), loggerKey, l)

			// WrapResponseWriter сохраняет Hijacker для /ws
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			l.LogAttrs(ctx, level, "http_request",
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_ip", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("query", r.URL.RawQuery),
			)
		})
	}
}

// L извлекает логгер из контекста, а если его нет - возвращает глобальный
func L(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerKey); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return logger.L()
}
