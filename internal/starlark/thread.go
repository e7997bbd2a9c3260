package starlark

import (
	"context"
	"log/slog"

	"go.starlark.net/starlark"
)

// newThread creates a thread whose print output goes to logger. The thread
// is cancelled when ctx is done; call the returned stop function when the
// script has finished.
func newThread(ctx context.Context, name string, logger *slog.Logger) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, "script", name)
		},
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return thread, func() { close(done) }
}
