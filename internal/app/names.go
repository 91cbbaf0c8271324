package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// NameDirectory remembers the display names the chat surface reports for uids.
type NameDirectory interface {
	Remember(ctx context.Context, uid, name string) error
	Lookup(ctx context.Context, uid string) (string, bool, error)
}

const nameLookupTimeout = 2 * time.Second

// DisplayNameFunc adapts a directory to Handlers.DisplayName, falling back to the uid.
func DisplayNameFunc(dir NameDirectory, logger *zap.SugaredLogger) func(uid string) string {
	return func(uid string) string {
		ctx, cancel := context.WithTimeout(context.Background(), nameLookupTimeout)
		defer cancel()

		name, ok, err := dir.Lookup(ctx, uid)
		if err != nil {
			logger.Warnw("display name lookup failed", "uid", uid, "error", err)
			return uid
		}
		if !ok || name == "" {
			return uid
		}
		return name
	}
}
