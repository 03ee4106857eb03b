// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diarysync

import (
	"context"
	"sync"
)

// Notifier delivers connectivity transitions to subscribers. Hosts adapt
// their platform's online/offline signal to this interface; tests fire
// transitions synthetically.
type Notifier interface {
	// Subscribe registers fn for connectivity transitions and returns an
	// unsubscribe func. fn receives true on transition to online and false
	// on transition to offline.
	Subscribe(fn func(online bool)) (cancel func())
}

// EventNotifier is an in-process Notifier. The host calls SetOnline when
// the platform's connectivity changes; only actual transitions are
// delivered, repeated states are dropped.
type EventNotifier struct {
	mu     sync.Mutex
	subs   map[int]func(online bool)
	nextID int
	online bool
	primed bool // first SetOnline always delivers
}

// NewEventNotifier creates an empty notifier.
func NewEventNotifier() *EventNotifier {
	return &EventNotifier{subs: make(map[int]func(online bool))}
}

// Subscribe implements Notifier.
func (n *EventNotifier) Subscribe(fn func(online bool)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// SetOnline records the connectivity state and notifies subscribers on a
// transition. Handlers run synchronously on the caller's goroutine.
func (n *EventNotifier) SetOnline(online bool) {
	n.mu.Lock()
	if n.primed && n.online == online {
		n.mu.Unlock()
		return
	}
	n.online = online
	n.primed = true
	handlers := make([]func(bool), 0, len(n.subs))
	for _, fn := range n.subs {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()

	for _, fn := range handlers {
		fn(online)
	}
}

// AutoSync subscribes the engine to connectivity transitions: going online
// triggers SyncPending and then invokes callback with its outcome; going
// offline only logs. The returned stop func unsubscribes. The callback may
// be nil.
func (e *Engine) AutoSync(ctx context.Context, notifier Notifier, callback func(*SyncResult, error)) (stop func()) {
	return notifier.Subscribe(func(online bool) {
		if !online {
			e.logger.Info("connection lost, entries will queue locally")
			return
		}
		e.logger.Info("connection restored, syncing pending entries")
		result, err := e.SyncPending(ctx)
		if err != nil {
			e.logger.Warn("automatic sync failed", "error", err)
		}
		if callback != nil {
			callback(result, err)
		}
	})
}
