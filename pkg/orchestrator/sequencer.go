// Copyright 2024 Greptime Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator drives the per-cluster event loop of spec.md §4.6:
// it re-evaluates component and task state machines to a fixed point,
// executes READY tasks, and hands WAITING tasks to pkg/probe. The
// goroutine+channel lifecycle pattern here generalizes a one-shot
// apply-and-return loop into explicit component/task state machines.
// Core algorithm grounded on original_source/src/Component.cpp's
// runTasks/setCanRun/setIsDone.
package orchestrator

import "sync"

// Sequencer is the process-wide, mutex-guarded per-name FIFO gate behind
// `delay.sequence` (spec.md §4.6, §9 "Global sequencer for delay.sequence"):
// at most one component with a given name, across every cluster, may be
// inside its delay.sequence window at a time. Grounded on Component.cpp's
// addToChannel/removeFromChannel pair (a static map name->queue of
// continuations guarded by a single mutex).
type Sequencer struct {
	mu     sync.Mutex
	queues map[string][]func()
}

// NewSequencer returns an empty Sequencer. One instance is shared across
// every cluster's Runner (spec.md §5: "the per-name sequencer... is
// shared across all clusters").
func NewSequencer() *Sequencer {
	return &Sequencer{queues: map[string][]func(){}}
}

// Enqueue appends fn to name's queue. If the queue was empty, fn holds
// the slot immediately; otherwise it runs once every fn ahead of it has
// called Release. fn must arrange for Release(name) to be called exactly
// once, once its window ends.
func (s *Sequencer) Enqueue(name string, fn func()) {
	s.mu.Lock()
	q := s.queues[name]
	wasEmpty := len(q) == 0
	s.queues[name] = append(q, fn)
	s.mu.Unlock()

	if wasEmpty {
		fn()
	}
}

// Release retires name's current head (the continuation that just
// finished its window) and, if another is queued behind it, runs it next
// — mirroring removeFromChannel's handoff to the next waiter.
func (s *Sequencer) Release(name string) {
	s.mu.Lock()
	q := s.queues[name]
	if len(q) > 0 {
		q = q[1:]
	}
	s.queues[name] = q
	var next func()
	if len(q) > 0 {
		next = q[0]
	}
	s.mu.Unlock()

	if next != nil {
		next()
	}
}
