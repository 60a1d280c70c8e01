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

package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jgaa/k8dep/pkg/cluster"
	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
	"github.com/jgaa/k8dep/pkg/logger"
	"github.com/jgaa/k8dep/pkg/probe"
	"github.com/jgaa/k8dep/pkg/task"
)

// gate tracks one component's progress through its optional delay.before /
// delay.sequence / delay.after windows (spec.md §4.6). A component without
// any of these arguments never allocates one.
type gate struct {
	beforeStarted, beforeDone bool
	seqStarted, seqDone       bool
	afterStarted, afterDone   bool
}

// Runner drives a single cluster's component/task state machines to a
// fixed point (spec.md §4.6's cooperative loop). One Runner per cluster;
// Sequencer is shared across every Runner in the run (spec.md §5).
type Runner struct {
	Cluster   *cluster.Cluster
	Graph     *task.Graph
	Getter    probe.Getter
	Sequencer *Sequencer
	Log       logger.Logger

	// idlePoll bounds how long Run waits for a Runtime callback before
	// re-checking; overridable by tests so they don't pay real wall time.
	idlePoll time.Duration

	gates map[*component.Component]*gate
}

// NewRunner returns a Runner for one cluster's already-built component
// tree and task graph. l is named after the cluster (logger.Logger.Named)
// so concurrent Runners' log lines stay attributable; a nil l is fine, and
// Run becomes silent.
func NewRunner(cl *cluster.Cluster, g *task.Graph, getter probe.Getter, seq *Sequencer, l logger.Logger) *Runner {
	if l != nil {
		l = l.Named(cl.Name)
	}
	return &Runner{
		Cluster:   cl,
		Graph:     g,
		Getter:    getter,
		Sequencer: seq,
		Log:       l,
		idlePoll:  100 * time.Millisecond,
		gates:     map[*component.Component]*gate{},
	}
}

// Run executes spec.md §4.6's loop body until every component and task in
// the cluster reaches a terminal state, or ctx is cancelled. It returns an
// error if the root component ends FAILED.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.Cluster.Runtime.DrainAvailable()

		changed := false
		if r.reevaluateTasks() {
			changed = true
		}
		if r.executeReadyTasks(ctx) {
			changed = true
		}
		if r.reevaluateComponents() {
			changed = true
		}

		if r.allTerminal() {
			break
		}

		if !changed {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fn := <-r.Cluster.Runtime.Pending():
				fn()
			case <-time.After(r.idlePoll):
			}
		}
	}

	if r.Cluster.Root.State == component.StateFailed {
		err := fmt.Errorf("cluster %s: %s failed", r.Cluster.Name, r.Cluster.Root.Name)
		if r.Log != nil {
			r.Log.Error(err.Error())
		}
		return err
	}
	if r.Log != nil {
		r.Log.V(0).Info("done")
	}
	return nil
}

// reevaluateTasks runs one pass of Task.Reevaluate over every task in the
// graph (spec.md §4.6 step 2: PRE→BLOCKED→READY/DEPENDENCY_FAILED).
func (r *Runner) reevaluateTasks() bool {
	changed := false
	for _, t := range r.Graph.Tasks {
		if t.Reevaluate() {
			changed = true
		}
	}
	return changed
}

// executeReadyTasks runs every task currently READY concurrently (spec.md
// §4.6 step 3). Each task's Effect runs in its own goroutine, joined by
// errgroup.Wait before control returns to the single-goroutine state
// machine; since distinct Task records occupy disjoint memory this never
// races, and it lets one task's blocking Apply call overlap another's.
func (r *Runner) executeReadyTasks(ctx context.Context) bool {
	var ready []*task.Task
	for _, t := range r.Graph.Tasks {
		if t.State == task.StateReady {
			ready = append(ready, t)
		}
	}
	if len(ready) == 0 {
		return false
	}

	var g errgroup.Group
	for _, t := range ready {
		t := t
		t.State = task.StateExecuting
		g.Go(func() error {
			r.runEffect(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return true
}

// runEffect executes one task's Effect and advances its state: FAILED on
// error, WAITING+a detached probe goroutine when StartProbeAfterApply is
// set, else straight to DONE.
func (r *Runner) runEffect(ctx context.Context, t *task.Task) {
	if err := t.Effect(ctx); err != nil {
		t.State = task.StateFailed
		if r.Log != nil {
			r.Log.V(0).Infof("task %s failed: %v", t.Name, err)
		}
		return
	}
	if !t.StartProbeAfterApply {
		t.State = task.StateDone
		return
	}
	t.State = task.StateWaiting
	r.startProbe(ctx, t)
}

// startProbe launches a long-lived goroutine that polls for t's readiness
// and posts the outcome back onto this cluster's Runtime, so the state
// mutation itself still happens on the single loop goroutine.
func (r *Runner) startProbe(ctx context.Context, t *task.Task) {
	go func() {
		outcome, err := probe.Poll(ctx, r.Getter, t.Component, t.Mode == task.ModeRemove)
		r.Cluster.Runtime.Post(func() {
			if err != nil {
				t.State = task.StateFailed
				return
			}
			switch outcome {
			case probe.OutcomeDone, probe.OutcomeRemoved:
				t.State = task.StateDone
			default:
				t.State = task.StateFailed
			}
		})
	}()
}

// reevaluateComponents runs one pass of the component state machine over
// every component in the tree (spec.md §4.6 step 1).
func (r *Runner) reevaluateComponents() bool {
	changed := false
	r.Cluster.Root.Walk(func(c *component.Component) {
		if r.reevaluateComponent(c) {
			changed = true
			r.Cluster.NotifyStateChange(c)
		}
	})
	return changed
}

// reevaluateComponent advances c one step: PRE→CREATING→BLOCKED, then
// (once its dependencies and BEFORE-children are satisfied) through any
// delay.before/delay.sequence gate into RUNNING, then (once its own tasks
// and all children are DONE) through any delay.after gate into DONE. A
// task failure or a child's FAILED escalates c to FAILED immediately.
func (r *Runner) reevaluateComponent(c *component.Component) bool {
	if c.State.IsTerminal() {
		return false
	}

	if r.hasFailed(c) {
		c.State = component.StateFailed
		return true
	}

	switch c.State {
	case component.StatePre:
		c.State = component.StateCreating
		return true
	case component.StateCreating:
		c.State = component.StateBlocked
		return true
	case component.StateBlocked:
		if !r.dependenciesSatisfied(c) {
			return false
		}
		return r.tryEnterRunning(c)
	case component.StatePreTimer:
		return r.tryEnterRunning(c)
	case component.StateRunning:
		if !r.tasksAndChildrenDone(c) {
			return false
		}
		return r.tryEnterDone(c)
	case component.StatePostTimer:
		return r.tryEnterDone(c)
	}
	return false
}

// tryEnterRunning gates entry into RUNNING behind delay.before and then
// delay.sequence, each arming its timer/sequencer slot exactly once and
// parking c in PRE_TIMER until it fires (original_source/src/Component.cpp
// Component::setCanRun).
func (r *Runner) tryEnterRunning(c *component.Component) bool {
	g := r.gateFor(c)

	if sec := delaySeconds(c, "delay.before"); sec > 0 && !g.beforeDone {
		if !g.beforeStarted {
			g.beforeStarted = true
			r.armTimer(sec, func() { g.beforeDone = true })
		}
		return r.parkInPreTimer(c)
	}

	if sec := delaySeconds(c, "delay.sequence"); sec > 0 && !g.seqDone {
		if !g.seqStarted {
			g.seqStarted = true
			r.Sequencer.Enqueue(c.Name, func() {
				r.armTimer(sec, func() {
					g.seqDone = true
					r.Sequencer.Release(c.Name)
				})
			})
		}
		return r.parkInPreTimer(c)
	}

	if c.State != component.StateRunning {
		c.State = component.StateRunning
		return true
	}
	return false
}

// tryEnterDone gates entry into DONE behind delay.after, the POST_TIMER
// counterpart of tryEnterRunning (Component::setIsDone).
func (r *Runner) tryEnterDone(c *component.Component) bool {
	g := r.gateFor(c)

	if sec := delaySeconds(c, "delay.after"); sec > 0 && !g.afterDone {
		if !g.afterStarted {
			g.afterStarted = true
			r.armTimer(sec, func() { g.afterDone = true })
		}
		if c.State != component.StatePostTimer {
			c.State = component.StatePostTimer
			return true
		}
		return false
	}

	c.State = component.StateDone
	return true
}

func (r *Runner) parkInPreTimer(c *component.Component) bool {
	if c.State != component.StatePreTimer {
		c.State = component.StatePreTimer
		return true
	}
	return false
}

// armTimer schedules fn to run, posted onto this cluster's Runtime so the
// flag mutation happens on the loop goroutine, once seconds have elapsed.
func (r *Runner) armTimer(seconds int, fn func()) {
	time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		r.Cluster.Runtime.Post(fn)
	})
}

func (r *Runner) gateFor(c *component.Component) *gate {
	g, ok := r.gates[c]
	if !ok {
		g = &gate{}
		r.gates[c] = g
	}
	return g
}

// delaySeconds parses one of the delay.* integer-seconds arguments,
// defaulting to 0 (no gate) when absent or unparsable.
func delaySeconds(c *component.Component, key string) int {
	v := c.ArgOrDefault(key, "0")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// dependenciesSatisfied reports whether c may leave BLOCKED: every
// same/cross-component dependency is DONE and every BEFORE child has
// already finished (spec.md §4.5's ordering table, mirrored at the
// component level).
func (r *Runner) dependenciesSatisfied(c *component.Component) bool {
	for _, dep := range c.DependsOn {
		if dep.State != component.StateDone {
			return false
		}
	}
	for _, cd := range c.ClusterDependsOn {
		if !cd.Done() {
			return false
		}
	}
	for _, child := range c.Children {
		if child.ParentRelation == definition.Before && child.State != component.StateDone {
			return false
		}
	}
	return true
}

// tasksAndChildrenDone reports whether c may leave RUNNING: its own tasks
// and every child (regardless of relation) have reached DONE.
func (r *Runner) tasksAndChildrenDone(c *component.Component) bool {
	for _, t := range r.Graph.Tasks {
		if t.Component == c && t.State != task.StateDone {
			return false
		}
	}
	for _, child := range c.Children {
		if child.State != component.StateDone {
			return false
		}
	}
	return true
}

// hasFailed reports whether c should escalate to FAILED: one of its own
// tasks failed terminally, or an immediate child already has.
func (r *Runner) hasFailed(c *component.Component) bool {
	for _, t := range r.Graph.Tasks {
		if t.Component == c && t.State.Failed() {
			return true
		}
	}
	for _, child := range c.Children {
		if child.State == component.StateFailed {
			return true
		}
	}
	return false
}

// allTerminal reports whether every component and every task in the
// cluster has reached a terminal state.
func (r *Runner) allTerminal() bool {
	done := true
	r.Cluster.Root.Walk(func(c *component.Component) {
		if !c.State.IsTerminal() {
			done = false
		}
	})
	if !done {
		return false
	}
	for _, t := range r.Graph.Tasks {
		if !t.State.IsTerminal() {
			return false
		}
	}
	return true
}
