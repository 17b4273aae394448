package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// Execute runs fn in a new goroutine, recovering and logging any panic.
func Execute(ctx context.Context, logger domain.Logger, name string, fn func()) {
	go func() {
		Call(ctx, logger, name, fn)
	}()
}

// Call runs fn on the current goroutine and reports whether it panicked.
// The panic value and stack are logged under name.
func Call(ctx context.Context, logger domain.Logger, name string, fn func()) (panicked bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		panicked = true
		logCtx := ctx
		if ctx.Err() != nil {
			logCtx = context.Background()
		}
		logger.Error(logCtx, fmt.Sprintf("Panic recovered in %s", name),
			"panic_info", fmt.Sprintf("%v", r),
			"stacktrace", string(debug.Stack()),
		)
	}()
	fn()
	return false
}
