package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/obs"
)

var (
	errNoToken      = errors.New("auth: token missing")
	errNoVerifier   = errors.New("auth: verifier not configured")
	errUnauthorized = common.Unauthorized("", "missing or invalid token", nil)
)

// Middleware resolves the caller identity from the Authorization header.
type Middleware struct {
	Verifier *Verifier
}

// Authenticate attaches the caller identity when a valid token is present.
// Requests without one, or with an unusable one, continue anonymously so
// guests keep their device cart.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, err := m.identify(r); err == nil {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects the request with 401 unless the caller is authenticated.
// Token errors that carry their own code, such as TOKEN_EXPIRED, are passed on.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserID(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := m.identify(r)
		if err != nil {
			var appErr *common.AppError
			if !errors.As(err, &appErr) || appErr.HTTPStatus == 0 {
				err = errUnauthorized
			}
			common.WriteAppError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) identify(r *http.Request) (context.Context, error) {
	if m.Verifier == nil {
		return nil, errNoVerifier
	}
	token := common.BearerToken(r)
	if token == "" {
		return nil, errNoToken
	}
	claims, err := m.Verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	obs.AnnotateUser(r.Context(), claims.UserID)
	ctx := common.WithAccessToken(common.WithUserID(r.Context(), claims.UserID), token)
	return WithClaims(ctx, claims), nil
}
