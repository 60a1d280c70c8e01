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

package cluster

import (
	"context"
	"sync"
)

// Barrier is a one-shot signal, the Go reading of the original's
// std::promise<void>/shared_future<void> pair (Cluster.h's
// vars_ready_pr_/vars_ready_ and the other three stage promises): a
// closed channel instead of a future, Signal instead of set_value.
type Barrier struct {
	once sync.Once
	ch   chan struct{}
}

// NewBarrier returns an unsignalled Barrier.
func NewBarrier() *Barrier {
	return &Barrier{ch: make(chan struct{})}
}

// Signal marks the barrier reached. Safe to call more than once; only the
// first call has effect, matching a promise that can only be set once.
func (b *Barrier) Signal() {
	b.once.Do(func() { close(b.ch) })
}

// Done returns a channel closed once Signal has been called, for use in a
// select alongside other events.
func (b *Barrier) Done() <-chan struct{} {
	return b.ch
}

// Wait blocks until Signal is called or ctx is done, whichever comes
// first. This is the only place the orchestrator may block rather than
// yield, per spec.md §5's suspension-point list.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signalled reports whether Signal has already been called, without
// blocking.
func (b *Barrier) Signalled() bool {
	select {
	case <-b.ch:
		return true
	default:
		return false
	}
}
