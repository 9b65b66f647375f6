package middleware

import (
	"context"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
)

// ReadOnlyCommand lets a command ask for a read-only unit of work.
type ReadOnlyCommand interface {
	ReadOnly() bool
}

// DeferredTransactionCommand is handled outside a middleware-owned unit of
// work. Its handler does slow I/O first and opens its own unit afterwards.
type DeferredTransactionCommand interface {
	DeferTransaction() bool
}

// Transaction runs each command inside its own unit of work and commits only
// when the handler succeeds. Handlers join the unit through uow.Join.
func Transaction(factory uow.UoWFactory) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if d, ok := cmd.(DeferredTransactionCommand); ok && d.DeferTransaction() {
				return next.Dispatch(ctx, cmd)
			}
			var opts uow.TxOptions
			if ro, ok := cmd.(ReadOnlyCommand); ok {
				opts.ReadOnly = ro.ReadOnly()
			}
			unit, txCtx, err := uow.Start(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			res, err := next.Dispatch(txCtx, cmd)
			if err != nil {
				_ = unit.Rollback(txCtx)
				return nil, err
			}
			if err := unit.Commit(txCtx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
