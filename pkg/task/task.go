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

// Package task builds and links the per-component task graph (spec.md
// §4.5) on top of an already-prepared component.Component tree, and
// resolves the same/cross-cluster dependency edges that feed it
// (spec.md §4.4). A single apply-and-return wrapper has no task graph;
// the goroutine+channel lifecycle tracking pattern of
// pkg/deployer/baremetal/runtime_manager.go is generalized here into an
// explicit node type per spec.md §3's Task record.
package task

import (
	"context"

	"github.com/jgaa/k8dep/pkg/component"
)

// Mode selects which direction a component/task graph is built and
// traversed (spec.md §3's Task.mode).
type Mode string

const (
	ModeCreate Mode = "CREATE"
	ModeRemove Mode = "REMOVE"
)

// State is a Task's position in its own state machine (spec.md §3).
type State string

const (
	StatePre              State = "PRE"
	StateBlocked          State = "BLOCKED"
	StateReady            State = "READY"
	StateExecuting        State = "EXECUTING"
	StateWaiting          State = "WAITING"
	StateDone             State = "DONE"
	StateAborted          State = "ABORTED"
	StateFailed           State = "FAILED"
	StateDependencyFailed State = "DEPENDENCY_FAILED"
)

// IsTerminal reports whether s no longer participates in BLOCKED
// re-evaluation.
func (s State) IsTerminal() bool {
	switch s {
	case StateDone, StateAborted, StateFailed, StateDependencyFailed:
		return true
	default:
		return false
	}
}

// Failed reports whether s is one of the failure terminals that should
// propagate DEPENDENCY_FAILED to dependents (spec.md §4.6 step 2).
func (s State) Failed() bool {
	switch s {
	case StateAborted, StateFailed, StateDependencyFailed:
		return true
	default:
		return false
	}
}

// Kind names the concrete effect a Task performs.
type Kind string

const (
	KindApply        Kind = "APPLY"
	KindPatch        Kind = "PATCH"
	KindDelete       Kind = "DELETE"
	KindScaleDown    Kind = "SCALE_DOWN"
	KindDeletePVCs   Kind = "DELETE_PVCS"
	KindDNSProvision Kind = "DNS_PROVISION"
	KindHTTPRequest  Kind = "HTTP_REQUEST"
)

// Effect is the work a READY task performs once. Returning an error
// transitions the task to FAILED; returning nil with startProbeAfterApply
// set transitions it to WAITING instead of DONE.
type Effect func(ctx context.Context) error

// Task is one unit of work attached to a Component (spec.md §3's Task
// record).
type Task struct {
	ID   int
	Name string

	Component *component.Component
	Mode      Mode
	Kind      Kind
	State     State

	DependsOn []*Task

	StartProbeAfterApply    bool
	DontFailIfAlreadyExists bool

	Effect Effect
}

// Ready reports whether every dependency has reached DONE.
func (t *Task) Ready() bool {
	for _, dep := range t.DependsOn {
		if dep.State != StateDone {
			return false
		}
	}
	return true
}

// DependencyFailed reports whether any dependency has failed terminally.
func (t *Task) DependencyFailed() bool {
	for _, dep := range t.DependsOn {
		if dep.State.Failed() {
			return true
		}
	}
	return false
}

// Reevaluate implements one pass of spec.md §4.6 step 2 for a BLOCKED
// task: stay BLOCKED, escalate to DEPENDENCY_FAILED, or advance to READY.
// A PRE task moves to BLOCKED on its first pass; tasks in any other state
// are left untouched.
func (t *Task) Reevaluate() bool {
	switch t.State {
	case StatePre:
		t.State = StateBlocked
		return true
	case StateBlocked:
		if t.DependencyFailed() {
			t.State = StateDependencyFailed
			return true
		}
		if t.Ready() {
			t.State = StateReady
			return true
		}
		return false
	default:
		return false
	}
}

// idSeq hands out stable, deterministic task IDs within one process run.
// Not reset between graphs deliberately: IDs are for logging/diagnostics
// only, never compared across separate BuildTasks calls.
var idSeq int

func nextID() int {
	idSeq++
	return idSeq
}

func newTask(c *component.Component, mode Mode, kind Kind, nameSuffix string) *Task {
	return &Task{
		ID:        nextID(),
		Name:      c.Name + "/" + nameSuffix,
		Component: c,
		Mode:      mode,
		Kind:      kind,
		State:     StatePre,
	}
}
