package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"algo-transfers/internal/service"
)

type stubReconciler struct {
	calls    atomic.Int32
	deadline atomic.Bool
	err      error
}

func (s *stubReconciler) ReconcilePending(ctx context.Context) (service.ReconcileSummary, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		s.deadline.Store(true)
	}
	return service.ReconcileSummary{Checked: 1}, s.err
}

func TestReconciler_RunsUntilCancelled(t *testing.T) {
	stub := &stubReconciler{}
	r := NewReconciler(stub, 5*time.Millisecond, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return stub.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
	assert.True(t, stub.deadline.Load(), "each pass runs with a timeout")
}

func TestReconciler_KeepsGoingAfterErrors(t *testing.T) {
	stub := &stubReconciler{err: errors.New("store unavailable")}
	r := NewReconciler(stub, 5*time.Millisecond, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	assert.Eventually(t, func() bool { return stub.calls.Load() >= 2 }, time.Second, time.Millisecond)
}
