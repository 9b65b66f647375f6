package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory begins units over a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{store: f.Store, readOnly: opts.ReadOnly}, nil
}

// Seed runs fn in a fresh unit and commits it; used by fixtures and tests.
func (f Factory) Seed(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	unit, err := f.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(ctx, unit); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

// Unit applies writes to the store immediately and keeps an undo log, so a
// unit reads its own writes and Rollback restores the previous state. Staged
// outbox records become visible to the relay only on Commit.
type Unit struct {
	store    *Store
	readOnly bool

	mu     sync.Mutex
	undo   []func()
	staged []*outboxEntry
	done   bool
}

func (u *Unit) Properties() property.Repository                    { return propertyRepo{u} }
func (u *Unit) Periods() pricing.PeriodRepository                  { return periodRepo{u} }
func (u *Unit) Options() options.Repository                        { return optionRepo{u} }
func (u *Unit) Promos() promo.Repository                           { return promoRepo{u} }
func (u *Unit) Payments() payments.Repository                      { return paymentRepo{u} }
func (u *Unit) Bookings() booking.Repository                       { return bookingRepo{u} }
func (u *Unit) Blocks() availability.Repository                    { return blockRepo{u} }
func (u *Unit) Subscriptions() calendarsync.SubscriptionRepository { return subscriptionRepo{u} }

var errReadOnly = errors.New("memory: write in read-only unit of work")

// write runs fn under the store write lock; fn returns the undo step.
func (u *Unit) write(fn func(s *Store) (func(), error)) error {
	if u.readOnly {
		return errReadOnly
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	undo, err := fn(u.store)
	if err != nil {
		return err
	}
	if undo != nil {
		u.undo = append(u.undo, undo)
	}
	return nil
}

func (u *Unit) read(fn func(s *Store) error) error {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	return fn(u.store)
}

func (u *Unit) stage(entry *outboxEntry) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.staged = append(u.staged, entry)
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	u.undo = nil
	if len(u.staged) > 0 {
		u.store.mu.Lock()
		u.store.outbox = append(u.store.outbox, u.staged...)
		u.store.mu.Unlock()
	}
	u.staged = nil
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	u.store.mu.Lock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.store.mu.Unlock()
	u.undo = nil
	u.staged = nil
	return nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
