package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/matchd/scheduler"
	"go.uber.org/zap"
)

// Sender is anything that can deliver one match notification.
type Sender interface {
	NotifyMatch(ctx context.Context, actorID, targetID, channelID int64) error
}

// Dispatcher makes a Sender fire-and-forget. NotifyMatch returns at once;
// delivery runs in its own goroutine under a timeout that is detached from
// the request. A failed delivery is retried once after a delay through the
// scheduler, then dropped with an error log.
type Dispatcher struct {
	sender     Sender
	sched      *scheduler.Scheduler
	timeout    time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. sched may be nil to disable retries.
func NewDispatcher(sender Sender, sched *scheduler.Scheduler, timeout, retryDelay time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Dispatcher{
		sender:     sender,
		sched:      sched,
		timeout:    timeout,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// NotifyMatch schedules delivery and always returns nil.
func (d *Dispatcher) NotifyMatch(_ context.Context, actorID, targetID, channelID int64) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(actorID, targetID, channelID); err != nil {
			d.logger.Warn("match notification failed",
				zap.Int64("actor_id", actorID),
				zap.Int64("target_id", targetID),
				zap.Int64("channel_id", channelID),
				zap.Error(err))
			d.retry(actorID, targetID, channelID)
		}
	}()
	return nil
}

// Wait blocks until every first delivery attempt has finished. Retries
// still pending in the scheduler are not drained; stopping the scheduler
// discards them and logs each one.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) retry(actorID, targetID, channelID int64) {
	if d.sched == nil || d.retryDelay <= 0 {
		return
	}
	name := fmt.Sprintf("notify_match:%d:%d:%d", actorID, targetID, channelID)
	d.sched.AddDelay(name, d.retryDelay, func() {
		if err := d.send(actorID, targetID, channelID); err != nil {
			d.logger.Error("match notification dropped",
				zap.Int64("actor_id", actorID),
				zap.Int64("target_id", targetID),
				zap.Int64("channel_id", channelID),
				zap.Error(err))
		}
	})
}

func (d *Dispatcher) send(actorID, targetID, channelID int64) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify: sender panicked: %v", r)
		}
	}()
	return d.sender.NotifyMatch(ctx, actorID, targetID, channelID)
}
