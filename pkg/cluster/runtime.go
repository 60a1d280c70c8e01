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

// Runtime is a cluster's posting point for callbacks, the Go reading of
// the original's per-cluster boost::asio::io_context (Cluster::getIoService).
// pkg/orchestrator's event loop drains Pending on every iteration so a
// cross-cluster listener's repost is picked up the same way a local state
// change would be (spec.md §5: "all state mutations within a cluster are
// serialised").
type Runtime struct {
	work chan func()
}

// NewRuntime returns a Runtime with reasonable buffering for the handful
// of cross-cluster callbacks a typical deployment posts.
func NewRuntime() *Runtime {
	return &Runtime{work: make(chan func(), 64)}
}

// Post enqueues fn to run on this runtime's owning cluster loop. Safe to
// call from any goroutine; fn itself must only be invoked by the owning
// loop via Pending/Drain.
func (r *Runtime) Post(fn func()) {
	r.work <- fn
}

// Pending returns the channel the owning loop selects on to receive
// posted callbacks.
func (r *Runtime) Pending() <-chan func() {
	return r.work
}

// DrainAvailable runs every callback currently queued without blocking,
// for use inside one iteration of the orchestrator's runTasks loop.
func (r *Runtime) DrainAvailable() {
	for {
		select {
		case fn := <-r.work:
			fn()
		default:
			return
		}
	}
}
