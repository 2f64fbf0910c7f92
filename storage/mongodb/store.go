// Package mongodb implements the storage contracts on top of the Mongo
// driver. Every operation wraps the caller's context with a bounded timeout.
package mongodb

import (
	"context"
	"time"
)

const opTimeout = 10 * time.Second

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}
