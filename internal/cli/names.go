package cli

import (
	"context"

	"go.uber.org/zap"

	"trivia-service/internal/app"
)

// layeredNames writes through to both directories and reads from the shared one,
// which falls back to the local cache on a miss.
type layeredNames struct {
	local  app.NameDirectory
	shared app.NameDirectory
	logger *zap.SugaredLogger
}

func (n *layeredNames) Remember(ctx context.Context, uid, name string) error {
	// The shared directory is authoritative; the local copy only serves its misses.
	if err := n.local.Remember(ctx, uid, name); err != nil {
		n.logger.Debugw("remember display name locally", "uid", uid, "error", err)
	}
	return n.shared.Remember(ctx, uid, name)
}

func (n *layeredNames) Lookup(ctx context.Context, uid string) (string, bool, error) {
	return n.shared.Lookup(ctx, uid)
}
