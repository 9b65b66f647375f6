package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

type contextInjector interface {
	InjectContext(context.Context) context.Context
}

// Start begins a unit and returns a context carrying it, with any
// driver session the unit needs downstream.
func Start(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, error) {
	if factory == nil {
		return nil, ctx, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, err
	}
	execCtx := ctx
	if injector, ok := unit.(contextInjector); ok {
		execCtx = injector.InjectContext(ctx)
	}
	return unit, ContextWithUnitOfWork(execCtx, unit), nil
}

// Scope is a unit joined by a handler. Commit and Close only act on units the
// scope started itself; an outer transaction keeps ownership of its own.
type Scope struct {
	Unit  UnitOfWork
	owned bool
	done  bool
}

// Join reuses the unit already in ctx or starts one.
func Join(ctx context.Context, factory UoWFactory, opts TxOptions) (*Scope, context.Context, error) {
	if unit, ok := FromContext(ctx); ok {
		return &Scope{Unit: unit}, ctx, nil
	}
	unit, execCtx, err := Start(ctx, factory, opts)
	if err != nil {
		return nil, ctx, err
	}
	return &Scope{Unit: unit, owned: true}, execCtx, nil
}

func (s *Scope) Commit(ctx context.Context) error {
	if !s.owned || s.done {
		return nil
	}
	s.done = true
	return s.Unit.Commit(ctx)
}

// Close rolls back an owned unit that was not committed.
func (s *Scope) Close(ctx context.Context) {
	if !s.owned || s.done {
		return
	}
	s.done = true
	_ = s.Unit.Rollback(ctx)
}
