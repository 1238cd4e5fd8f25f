package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, postgres.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyMember), errors.Is(err, domain.ErrMessageIDTaken):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError логирует 5xx и отдаёт клиенту текст только для ожидаемых ошибок.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		httputil.L(ctx).Error(op, slog.Any("err", err))
		msg = http.StatusText(status)
	}
	httputil.Error(ctx, w, status, msg)
}
