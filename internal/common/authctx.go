package common

import "context"

// caller is the identity attached to a request once its token verified.
type caller struct {
	userID string
	token  string
}

type callerKey struct{}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

// WithUserID records the authenticated user id on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	c := callerFrom(ctx)
	c.userID = id
	return context.WithValue(ctx, callerKey{}, c)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id := callerFrom(ctx).userID
	return id, id != ""
}

// WithAccessToken records the caller's bearer token so backend calls can be
// made on the user's behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	c := callerFrom(ctx)
	c.token = token
	return context.WithValue(ctx, callerKey{}, c)
}

// AccessToken returns the caller's bearer token, if any.
func AccessToken(ctx context.Context) (string, bool) {
	token := callerFrom(ctx).token
	return token, token != ""
}
