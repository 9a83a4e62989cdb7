package common

import "context"

// UserContext identifies the caller resolved from the X-API-Key header,
// plus any per-request SmartThings token override supplied via headers.
// A nil UserContext means the request carried no usable API key.
type UserContext struct {
	UserID string
	Email  string

	// TokenOverride is a raw SmartThings token supplied on the request
	// itself (Authorization: Bearer or X-SmartThings-Token). When set it
	// takes precedence over the stored binding for this request only.
	TokenOverride string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}
