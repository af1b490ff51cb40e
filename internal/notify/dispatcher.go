// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/taskforge/taskforge/pkg/errutil"
)

// DefaultSendTimeout bounds a single background send.
const DefaultSendTimeout = 10 * time.Second

// Outcome labels passed to a Recorder.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Recorder observes notification outcomes.
type Recorder interface {
	RecordNotification(kind, outcome string)
}

// Dispatcher sends notifications on background goroutines. Notify never
// blocks on delivery and never reports a delivery failure to its caller.
type Dispatcher struct {
	sender   Sender
	from     string
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFrom sets the sender address.
func WithFrom(from string) DispatcherOption {
	return func(d *Dispatcher) {
		if from != "" {
			d.from = from
		}
	}
}

// WithSendTimeout bounds each send.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithRecorder attaches an outcome recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// NewDispatcher creates a Dispatcher delivering through sender.
func NewDispatcher(sender Sender, logger *slog.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if sender == nil {
		return nil, oops.Errorf("sender is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	d := &Dispatcher{
		sender:  sender,
		from:    DefaultFrom,
		timeout: DefaultSendTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Notify queues a notification and returns immediately. The send is detached
// from ctx cancellation so it outlives the request, but keeps its values.
func (d *Dispatcher) Notify(ctx context.Context, kind Kind, email, name string) {
	msg, err := Compose(kind, d.from, email, name)
	if err != nil {
		errutil.LogErrorContext(ctx, d.logger, "notification not sent", err)
		d.record(kind, OutcomeDropped)
		return
	}

	// The read lock orders wg.Add before Close's wg.Wait.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WarnContext(ctx, "notification dropped after shutdown", "kind", string(kind))
		d.record(kind, OutcomeDropped)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.sender.Send(sendCtx, msg); err != nil {
			errutil.LogErrorContext(sendCtx, d.logger, "notification delivery failed",
				oops.With("kind", string(kind)).Wrap(err))
			d.record(kind, OutcomeFailed)
			return
		}
		d.logger.DebugContext(sendCtx, "notification sent", "kind", string(kind))
		d.record(kind, OutcomeSent)
	}()
}

// Close stops accepting notifications and waits for in-flight sends, or
// until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("NOTIFY_DRAIN_TIMEOUT").Wrap(ctx.Err())
	}
}

func (d *Dispatcher) record(kind Kind, outcome string) {
	if d.recorder != nil {
		d.recorder.RecordNotification(string(kind), outcome)
	}
}
