package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// withBuildMetadata tags ctx with a fresh build id and the client address
// (already reduced to an IP by TrustedRealIP) for the build log.
func withBuildMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithBuildID(ctx, core.NewBuildID())
	return core.ContextWithRequester(ctx, r.RemoteAddr)
}
