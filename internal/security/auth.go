package security

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

var ErrMissingCredentials = errors.New("missing credentials")

type Identity struct {
	UserID int64
	Name   string
}

// Authenticator достаёт пользователя из запроса.
// С валидатором - только JWT (Bearer или access_token в query, для ws).
// Без валидатора - dev-режим: X-User-ID / X-User-Name или user_id в query, токен не проверяется.
type Authenticator struct {
	validator *JWTValidator
}

func NewAuthenticator(v *JWTValidator) *Authenticator {
	return &Authenticator{validator: v}
}

func (a *Authenticator) DevMode() bool { return a.validator == nil }

func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	if a.validator == nil {
		return devIdentity(r)
	}

	tok := bearerToken(r)
	if tok == "" {
		return Identity{}, ErrMissingCredentials
	}
	claims, err := a.validator.ParseAndValidate(tok)
	if err != nil {
		return Identity{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: id, Name: claims.Name}, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && len(auth) > 7 {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func devIdentity(r *http.Request) (Identity, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	if raw == "" {
		return Identity{}, ErrMissingCredentials
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, ErrInvalidSubject
	}
	return Identity{UserID: uid, Name: r.Header.Get("X-User-Name")}, nil
}
