// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages into the running program from other goroutines.
type Sender interface {
	Send(msg tea.Msg)
}

// programSender queues messages and feeds them to a tea.Program in order.
//
// Program.Send blocks until the update loop receives the message, and
// watchdog callbacks can run inside Update (Extend, activity), so Send only
// enqueues. A single pump goroutine preserves the order of expiry, failed
// sign-out and navigation.
type programSender struct {
	mu    sync.Mutex
	p     *tea.Program
	queue []tea.Msg
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newProgramSender() *programSender {
	return &programSender{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// attach starts delivery to p, including anything queued before.
func (s *programSender) attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
	go s.pump()
	s.notify()
}

func (s *programSender) Send(msg tea.Msg) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	s.notify()
}

// close stops the pump. Queued messages are dropped.
func (s *programSender) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *programSender) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *programSender) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 || s.p == nil {
				s.mu.Unlock()
				break
			}
			msg := s.queue[0]
			s.queue = s.queue[1:]
			p := s.p
			s.mu.Unlock()

			p.Send(msg)
		}
	}
}
