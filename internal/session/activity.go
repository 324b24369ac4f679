// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"
)

// ActivityKind classifies a raw user interaction.
type ActivityKind int

const (
	ActivityPointer ActivityKind = iota
	ActivityKey
	ActivityScroll
	ActivityTouch
	ActivityClick
)

// String returns the event name used in logs.
func (k ActivityKind) String() string {
	switch k {
	case ActivityPointer:
		return "pointer"
	case ActivityKey:
		return "key"
	case ActivityScroll:
		return "scroll"
	case ActivityTouch:
		return "touch"
	case ActivityClick:
		return "click"
	default:
		return "unknown"
	}
}

// Activity is a single observed interaction. It is consumed immediately.
type Activity struct {
	Kind ActivityKind
	At   time.Time
}

// ActivitySource delivers raw interactions to a subscriber until the
// returned unsubscribe function is called.
type ActivitySource interface {
	Subscribe(fn func(Activity)) (unsubscribe func())
}

// Feed is an ActivitySource that the host pushes interactions into.
// Subscribers are invoked synchronously on the publishing goroutine.
type Feed struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Activity)
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]func(Activity))}
}

// Subscribe registers fn. The returned function is idempotent.
func (f *Feed) Subscribe(fn func(Activity)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Publish delivers a to every current subscriber.
func (f *Feed) Publish(a Activity) {
	f.mu.Lock()
	subs := make([]func(Activity), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(a)
	}
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
