// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

// Subscription is a registered notification callback.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the callback. It's safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// InteractionTracker gates account reads on the provider's interaction
// status. It's safe for concurrent use.
type InteractionTracker struct {
	provider IdentityProvider
	logger   hclog.Logger
	drains   singleflight.Group

	mu          sync.Mutex
	status      InteractionStatus
	quiet       bool
	closed      bool
	nextID      uint64
	subscribers map[uint64]func(context.Context, Notification)
	detach      func()
}

// NewInteractionTracker creates a tracker subscribed to p's interaction
// status stream. Close must be called to detach from p.
//
// Supported options: WithLogger
func NewInteractionTracker(p IdentityProvider, opt ...Option) (*InteractionTracker, error) {
	const op = "session.NewInteractionTracker"
	if p == nil {
		return nil, fmt.Errorf("%s: identity provider is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	t := &InteractionTracker{
		provider:    p,
		logger:      opts.withLogger.Named("tracker"),
		status:      p.InteractionStatus(),
		subscribers: map[uint64]func(context.Context, Notification){},
	}
	t.detach = p.SubscribeInteraction(t.observe)
	return t, nil
}

// Subscribe registers fn. It's called when the provider's interaction status
// transitions to InteractionNone and after every Drain which leaves the
// provider idle.
func (t *InteractionTracker) Subscribe(fn func(context.Context, Notification)) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || fn == nil {
		return &Subscription{}
	}
	id := t.nextID
	t.nextID++
	t.subscribers[id] = fn
	return &Subscription{cancel: func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}}
}

// Status returns the last observed interaction status.
func (t *InteractionTracker) Status() InteractionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// InProgress reports whether an interaction is outstanding or a drain is
// running.
func (t *InteractionTracker) InProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quiet || t.status != InteractionNone
}

// Drain handles the provider's pending redirect result. Overlapping calls
// share one provider call. A failure is logged and reported as no result.
// Subscribers are notified once the drain completes with the provider idle;
// status transitions observed while draining are not forwarded.
func (t *InteractionTracker) Drain(ctx context.Context) *RedirectResult {
	v, _, _ := t.drains.Do("drain", func() (interface{}, error) {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return nil, nil
		}
		t.quiet = true
		t.mu.Unlock()

		result, err := t.provider.HandleRedirect(ctx)
		if err != nil {
			t.logger.Warn("unable to handle redirect result, continuing without one", "error", err)
			result = nil
		}

		status := t.provider.InteractionStatus()
		t.mu.Lock()
		t.status = status
		subs := t.subscribersLocked()
		t.mu.Unlock()

		if status == InteractionNone {
			t.notify(ctx, subs, Notification{Status: status, Redirect: result})
		} else {
			t.logger.Debug("provider not idle after drain", "status", status.String())
		}

		t.mu.Lock()
		t.quiet = false
		t.mu.Unlock()
		return result, nil
	})
	result, _ := v.(*RedirectResult)
	return result
}

// Close detaches from the provider and drops all subscribers.
func (t *InteractionTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.subscribers = map[uint64]func(context.Context, Notification){}
	detach := t.detach
	t.mu.Unlock()
	if detach != nil {
		detach()
	}
}

func (t *InteractionTracker) observe(s InteractionStatus) {
	t.mu.Lock()
	prev := t.status
	t.status = s
	if t.closed || t.quiet || s != InteractionNone || prev == InteractionNone {
		t.mu.Unlock()
		return
	}
	subs := t.subscribersLocked()
	t.mu.Unlock()
	t.logger.Trace("interaction complete", "previous", prev.String())
	t.notify(context.Background(), subs, Notification{Status: s})
}

// subscribersLocked returns the subscribers in registration order, t.mu must
// be held.
func (t *InteractionTracker) subscribersLocked() []func(context.Context, Notification) {
	if t.closed {
		return nil
	}
	ids := make([]uint64, 0, len(t.subscribers))
	for id := range t.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(context.Context, Notification), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, t.subscribers[id])
	}
	return subs
}

func (t *InteractionTracker) notify(ctx context.Context, subs []func(context.Context, Notification), n Notification) {
	for _, fn := range subs {
		fn(ctx, n)
	}
}
