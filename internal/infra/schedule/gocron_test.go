package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsJobUntilShutdown(t *testing.T) {
	s, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every("tick", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown())
	assert.Error(t, s.ctx.Err())
}

func TestEveryRejectsNonPositiveInterval(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()
	assert.Error(t, s.Every("never", 0, func(context.Context) error { return nil }))
}
