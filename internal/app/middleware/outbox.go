package middleware

import (
	"context"
	"fmt"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
)

// OutboxFlush flushes records staged by a successful handler while its unit
// of work is still open. It must sit inside Transaction.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			if res, err = next.Dispatch(ctx, cmd); err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, fmt.Errorf("middleware: flush outbox after %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
