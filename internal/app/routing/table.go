// Package routing maps message keys to the handlers behind the command and
// query buses.
package routing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	ErrUnrouted     = errors.New("routing: no handler registered")
	ErrWrongMessage = errors.New("routing: message does not match its handler")
	ErrResultType   = errors.New("routing: unexpected result type")
)

// Keyed is anything routed by its Key.
type Keyed interface {
	Key() string
}

type Route[M Keyed] func(ctx context.Context, msg M) (any, error)

// Table holds the routes of one bus. Routes are added during wiring only.
type Table[M Keyed] struct {
	kind   string
	routes map[string]Route[M]
}

// NewTable names the table after the kind of message it routes; the name
// prefixes errors and registration panics.
func NewTable[M Keyed](kind string) *Table[M] {
	return &Table[M]{kind: kind, routes: map[string]Route[M]{}}
}

// Add panics on an empty or repeated key.
func (t *Table[M]) Add(key string, route Route[M]) {
	if key == "" {
		panic(t.kind + ": empty key registration")
	}
	if _, exists := t.routes[key]; exists {
		panic(t.kind + ": duplicate registration for " + key)
	}
	t.routes[key] = route
}

func (t *Table[M]) Route(ctx context.Context, msg M) (any, error) {
	route, ok := t.routes[msg.Key()]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", t.kind, msg.Key(), ErrUnrouted)
	}
	return route(ctx, msg)
}

// Keys lists the registered keys in order.
func (t *Table[M]) Keys() []string {
	return slices.Sorted(maps.Keys(t.routes))
}

// Typed wraps a handler expecting the concrete message type T.
func Typed[M Keyed, T Keyed, R any](key string, handle func(context.Context, T) (R, error)) Route[M] {
	return func(ctx context.Context, msg M) (any, error) {
		concrete, ok := any(msg).(T)
		if !ok {
			return nil, fmt.Errorf("%q got %T: %w", key, msg, ErrWrongMessage)
		}
		return handle(ctx, concrete)
	}
}

// Result narrows a bus reply to R. A nil reply yields the zero R.
func Result[R any](key string, res any, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%q returned %T: %w", key, res, ErrResultType)
	}
	return value, nil
}
