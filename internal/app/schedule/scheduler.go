package schedule

import (
	"context"
	"time"
)

type Job func(ctx context.Context) error

// Scheduler runs named jobs periodically. A job still running when its next
// tick arrives is skipped, not doubled.
type Scheduler interface {
	Every(name string, interval time.Duration, job Job) error
	Start()
	Shutdown() error
}
