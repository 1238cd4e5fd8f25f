package httpmw

import (
	"context"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

type Authenticator interface {
	Authenticate(r *http.Request) (security.Identity, error)
}

// Auth требует валидный Bearer JWT (или X-User-ID в dev-режиме).
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				httputil.L(r.Context()).Debug("auth failed", "err", err)
				httputil.Error(r.Context(), w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromCtx(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(security.Identity)
	return id, ok
}

func UserIDFromCtx(ctx context.Context) int64 {
	id, _ := IdentityFromCtx(ctx)
	return id.UserID
}
