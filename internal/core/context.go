package core

import "context"

type contextKey string

const (
	ctxKeyBuildID   contextKey = "build_id"
	ctxKeyRequester contextKey = "build_requester"
)

// ContextWithBuildID tags ctx with the id of the build in progress so the
// persistence sink can record which build produced an object.
func ContextWithBuildID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyBuildID, id)
}

// ContextWithRequester records who asked for the build (client IP for HTTP
// requests, OS user for the CLI).
func ContextWithRequester(ctx context.Context, who string) context.Context {
	return context.WithValue(ctx, ctxKeyRequester, who)
}

// BuildIDFromContext extracts the build id from context.
func BuildIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyBuildID).(string); ok {
		return v
	}
	return ""
}

// RequesterFromContext extracts the requester from context.
func RequesterFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequester).(string); ok {
		return v
	}
	return ""
}
