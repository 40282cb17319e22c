package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPurger struct {
	calls atomic.Int64
	err   error
}

func (p *countingPurger) PurgeExpiredRevocations(context.Context) (int64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return 0, p.err
	}
	return 2, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSweeper_PurgesOnInterval(t *testing.T) {
	purger := &countingPurger{}
	s := New(purger, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s.Run(ctx)

	assert.GreaterOrEqual(t, purger.calls.Load(), int64(2))
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	purger := &countingPurger{}
	s := New(purger, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
	assert.Zero(t, purger.calls.Load())
}

func TestSweeper_KeepsRunningAfterFailure(t *testing.T) {
	purger := &countingPurger{err: errors.New("store down")}
	s := New(purger, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s.Run(ctx)

	// Failures do not stop the loop; later ticks still sweep.
	assert.GreaterOrEqual(t, purger.calls.Load(), int64(2))
}
