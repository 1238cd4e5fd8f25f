package httputil

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

const (
	HeaderRequestID = "X-Request-ID"

	maxRequestIDLen = 64
)

// MiddlewareRequestID берёт X-Request-ID клиента (нативный хост кладёт туда
// correlation id) или выдаёт новый. Ответ всегда несёт итоговый id.
func MiddlewareRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), reqID)))
	})
}

// validRequestID: непустой, не длиннее 64, только печатный ASCII без пробелов.
// Иначе id попадает в логи как есть.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqID)
}

func FromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok && v != ""
}
