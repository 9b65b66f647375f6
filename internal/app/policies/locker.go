package policies

import (
	"context"
	"errors"
)

var (
	ErrLockTimeout = errors.New("policies: lock not acquired before deadline")
	ErrLockLost    = errors.New("policies: lock expired before release")
)

// Locker serializes work on one key across processes. Release must be called
// exactly once with a context that is still usable after the caller's ends.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

func PropertyLockKey(tenantID, propertyID string) string {
	return "lock:property:" + tenantID + ":" + propertyID
}
