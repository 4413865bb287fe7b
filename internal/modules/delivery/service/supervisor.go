package service

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/samber/oops"
)

// DefaultCooldown is the pause before a crashed session is restarted.
const DefaultCooldown = 60 * time.Second

// Supervise runs fn until ctx is done. Whenever fn returns an error or
// panics, the failure is logged and fn is started again after cooldown.
// A clean return from fn stops supervision.
func Supervise(ctx context.Context, name string, cooldown time.Duration, fn func(ctx context.Context) error) error {
	for restarts := 0; ; restarts++ {
		if ctx.Err() != nil {
			return nil
		}

		err := runSafe(ctx, fn)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		if err == nil {
			slog.Info("Supervised task finished", "name", name)
			return nil
		}

		slog.Error("Supervised task crashed", "name", name, "restarts", restarts, "error", err)
		slog.Info("Waiting until restart", "name", name, "cooldown", cooldown)
		if err := wait(ctx, cooldown, nil); err != nil {
			return nil
		}
		slog.Info("Restarting", "name", name)
	}
}

func runSafe(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.With("stack", string(debug.Stack())).Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
