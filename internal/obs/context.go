package obs

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront/internal/common"
)

// requestInfo carries details resolved deep in the handler chain back out to
// the logging, metrics and tracing middleware.
type requestInfo struct {
	mu     sync.Mutex
	route  string
	userID string
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	info := infoFrom(ctx)
	if info == nil {
		info = &requestInfo{}
		ctx = context.WithValue(ctx, requestInfoKey{}, info)
	}
	info.mu.Lock()
	info.route = pattern
	info.mu.Unlock()
	return ctx
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	info := infoFrom(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.route
}

// AnnotateUser records the authenticated user of the request so that outer
// middleware can log it after the handler returns.
func AnnotateUser(ctx context.Context, userID string) {
	if info := infoFrom(ctx); info != nil {
		info.mu.Lock()
		info.userID = userID
		info.mu.Unlock()
	}
}

func userFrom(r *http.Request) string {
	if uid, ok := common.UserID(r.Context()); ok {
		return uid
	}
	if info := infoFrom(r.Context()); info != nil {
		info.mu.Lock()
		defer info.mu.Unlock()
		return info.userID
	}
	return ""
}

// routeLabel names the route of a served request: the pattern recorded on
// the context, else the pattern chi matched, else fallback.
func routeLabel(r *http.Request, fallback string) string {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}

// RoutePatternMiddleware attaches the request info holder and records the
// chi route pattern once routing has completed.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if infoFrom(ctx) == nil {
			ctx = context.WithValue(ctx, requestInfoKey{}, &requestInfo{})
		}
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" && RoutePatternFromContext(ctx) == "" {
				WithRoutePattern(ctx, pattern)
			}
		}
	})
}
