package auth

import "context"

type userIDKeyType struct{}

var userIDKey = userIDKeyType{}

// WithUserID returns a context carrying an authenticated user id. Used by
// the refresh middleware so a rotation performed mid-request is visible to
// the handler of that same request.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
