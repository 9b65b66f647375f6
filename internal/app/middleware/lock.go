package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
)

// LockedCommand is implemented by commands that must not run concurrently for
// the same key, such as confirmations and imports touching one property calendar.
type LockedCommand interface {
	commands.Command
	LockKey() string
}

// PropertyLock holds the advisory lock named by the command for the whole
// dispatch. It must wrap Idempotency and Transaction so the re-check inside
// the unit of work observes every commit made under the previous holder.
func PropertyLock(locker policies.Locker, logger *slog.Logger) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			locked, ok := cmd.(LockedCommand)
			if !ok || locked.LockKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := locked.LockKey()
			release, err := locker.Acquire(ctx, key)
			if err != nil {
				return nil, err
			}
			res, err := next.Dispatch(ctx, cmd)
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil && logger != nil {
				logger.Warn("lock release failed", "key", key, "lost", errors.Is(relErr, policies.ErrLockLost), "error", relErr)
			}
			return res, err
		})
	}
}
