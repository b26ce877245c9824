package notify_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kasuganosora/matchd/notify"
	"github.com/kasuganosora/matchd/scheduler"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSender struct {
	calls    atomic.Int32
	failures int32
	panics   bool
	mu       sync.Mutex
	deadline bool
}

func (f *fakeSender) NotifyMatch(ctx context.Context, _, _, _ int64) error {
	n := f.calls.Add(1)
	f.mu.Lock()
	_, f.deadline = ctx.Deadline()
	f.mu.Unlock()
	if f.panics {
		panic("responder exploded")
	}
	if n <= f.failures {
		return errors.New("responder unavailable")
	}
	return nil
}

func TestDispatcher_DeliversDetached(t *testing.T) {
	sender := &fakeSender{}
	d := notify.NewDispatcher(sender, nil, time.Second, 0, zap.NewNop())

	// The request context is already gone; delivery must not care.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, d.NotifyMatch(ctx, 1, 2, 3))
	d.Wait()

	assert.Equal(t, int32(1), sender.calls.Load())
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.True(t, sender.deadline, "delivery runs under its own timeout")
}

func TestDispatcher_RetriesOnceThroughScheduler(t *testing.T) {
	sched := scheduler.New(zap.NewNop())
	defer sched.Stop()
	sender := &fakeSender{failures: 1}
	d := notify.NewDispatcher(sender, sched, time.Second, 20*time.Millisecond, zap.NewNop())

	assert.NoError(t, d.NotifyMatch(context.Background(), 1, 2, 3))
	d.Wait()
	assert.Eventually(t, func() bool { return sender.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return sched.PendingDelays() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_GivesUpAfterRetry(t *testing.T) {
	sched := scheduler.New(zap.NewNop())
	defer sched.Stop()
	sender := &fakeSender{failures: 10}
	d := notify.NewDispatcher(sender, sched, time.Second, 10*time.Millisecond, zap.NewNop())

	assert.NoError(t, d.NotifyMatch(context.Background(), 1, 2, 3))
	d.Wait()
	assert.Eventually(t, func() bool { return sched.PendingDelays() == 0 && sender.calls.Load() == 2 },
		time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), sender.calls.Load(), "only one retry")
}

func TestDispatcher_SenderPanicIsContained(t *testing.T) {
	sender := &fakeSender{panics: true}
	d := notify.NewDispatcher(sender, nil, time.Second, 0, zap.NewNop())

	assert.NoError(t, d.NotifyMatch(context.Background(), 1, 2, 3))
	assert.NotPanics(t, d.Wait)
	assert.Equal(t, int32(1), sender.calls.Load())
}
