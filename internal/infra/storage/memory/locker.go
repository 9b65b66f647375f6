package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
)

// Locker is an in-process policies.Locker for single-instance deployments.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]chan struct{})}
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
				return nil
			}, nil
		}
		l.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", policies.ErrLockTimeout, key)
		}
	}
}

var _ policies.Locker = (*Locker)(nil)
