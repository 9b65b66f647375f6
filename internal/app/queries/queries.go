package queries

import (
	"context"
	"errors"

	"github.com/Eliezelg/villasaas-sub004/internal/app/routing"
)

// Query reads state and never changes it.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

var ErrNilBus = errors.New("queries: nil bus")

type InMemoryBus struct {
	table *routing.Table[Query]
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{table: routing.NewTable[Query]("queries")}
}

func (b *InMemoryBus) Ask(ctx context.Context, query Query) (any, error) {
	return b.table.Route(ctx, query)
}

func (b *InMemoryBus) Keys() []string {
	return b.table.Keys()
}

func RegisterHandler[Q Query, R any](bus *InMemoryBus, key string, handler Handler[Q, R]) {
	bus.table.Add(key, routing.Typed[Query](key, handler.Handle))
}

// Ask runs query through bus and narrows the reply to R.
func Ask[Q Query, R any](ctx context.Context, bus Bus, query Q) (R, error) {
	if bus == nil {
		var zero R
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, query)
	return routing.Result[R](query.Key(), res, err)
}
