package commands

import (
	"context"
	"errors"

	"github.com/Eliezelg/villasaas-sub004/internal/app/routing"
)

// Command is a state change; Key selects its handler.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var ErrNilBus = errors.New("commands: nil bus")

// InMemoryBus is the innermost command router; middleware wraps it.
type InMemoryBus struct {
	table *routing.Table[Command]
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{table: routing.NewTable[Command]("commands")}
}

func (b *InMemoryBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	return b.table.Route(ctx, cmd)
}

func (b *InMemoryBus) Keys() []string {
	return b.table.Keys()
}

// RegisterHandler binds handler to key. Registering a key twice panics.
func RegisterHandler[C Command, R any](bus *InMemoryBus, key string, handler Handler[C, R]) {
	bus.table.Add(key, routing.Typed[Command](key, handler.Handle))
}

// Dispatch sends cmd through bus and narrows the reply to R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	if bus == nil {
		var zero R
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	return routing.Result[R](cmd.Key(), res, err)
}
