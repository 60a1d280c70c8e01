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

package task

import (
	"context"
	"fmt"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

// Applier is the seam between the task graph and the K8s object adapter
// (pkg/kube), kept as an interface here so this package never imports
// pkg/kube directly.
type Applier interface {
	// Apply POSTs c's object to its creation endpoint. When
	// dontFailIfAlreadyExists is set and the server reports 409/already
	// exists, the implementation re-attempts as a PATCH instead of
	// surfacing the conflict (spec.md §4.6 "Apply semantics").
	Apply(ctx context.Context, c *component.Component, dontFailIfAlreadyExists bool) error
	// Delete removes c's object; 404 is treated as success.
	Delete(ctx context.Context, c *component.Component) error
	ScaleDown(ctx context.Context, c *component.Component, replicas int32) error
	DeletePVCs(ctx context.Context, c *component.Component) error
}

// HTTPExecutor runs an HttpRequest component's effective request.
type HTTPExecutor interface {
	Do(ctx context.Context, spec *component.HttpRequestSpec) error
}

// DNSProvisioner submits the DNS record(s) implied by an Ingress
// component. A nil DNSProvisioner passed to BuildTasks means "no DNS
// provisioner configured" (spec.md §4.5's conditional DNS-task expansion).
type DNSProvisioner interface {
	Provision(ctx context.Context, c *component.Component) error
}

// Graph is the linked output of BuildTasks: every task in build order plus
// a lookup from component to its chain's entry/exit tasks, used by
// ResolveDependencies' caller to wire cross-component ordering.
type Graph struct {
	Tasks []*Task

	entry map[*component.Component]*Task
	exit  map[*component.Component]*Task
}

// EntryTask returns the task that must be READY before c's own ordering
// constraints are satisfied (the first task in c's chain).
func (g *Graph) EntryTask(c *component.Component) *Task { return g.entry[c] }

// ExitTask returns the task whose DONE state means c's own chain has
// finished (the last task in c's chain); this is what a child with
// parentRelation=AFTER depends on, and what a BEFORE child's task is
// depended on by.
func (g *Graph) ExitTask(c *component.Component) *Task { return g.exit[c] }

// BuildTasks implements spec.md §4.5: one task (or task chain) per
// component, linked by parentRelation per the deploy/remove table, plus
// the StatefulSet 3-task remove expansion and the Ingress+DNS expansion.
// http and dns may be nil; a nil dns simply skips the Ingress DNS task,
// matching "if a DNS provisioner is configured" (spec.md §4.3).
func BuildTasks(root *component.Component, mode Mode, applier Applier, http HTTPExecutor, dns DNSProvisioner) (*Graph, error) {
	g := &Graph{entry: map[*component.Component]*Task{}, exit: map[*component.Component]*Task{}}

	var buildErr error
	root.Walk(func(c *component.Component) {
		if buildErr != nil {
			return
		}
		chain, err := chainFor(c, mode, applier, http, dns)
		if err != nil {
			buildErr = err
			return
		}
		if len(chain) == 0 {
			return
		}
		for i := 1; i < len(chain); i++ {
			chain[i].DependsOn = append(chain[i].DependsOn, chain[i-1])
		}
		g.Tasks = append(g.Tasks, chain...)
		g.entry[c] = chain[0]
		g.exit[c] = chain[len(chain)-1]
	})
	if buildErr != nil {
		return nil, buildErr
	}

	root.Walk(func(c *component.Component) {
		linkComponentDeps(g, c, mode)
		linkParentRelation(g, c, mode)
	})

	if err := detectTaskCycles(g.Tasks); err != nil {
		return nil, err
	}
	return g, nil
}

// chainFor returns the ordered task chain contributed by one component.
func chainFor(c *component.Component, mode Mode, applier Applier, http HTTPExecutor, dns DNSProvisioner) ([]*Task, error) {
	if c.Kind == definition.KindApp {
		return nil, nil
	}

	if c.Kind == definition.KindHttpRequest {
		if http == nil {
			return nil, fmt.Errorf("component %s: HttpRequest component with no HTTP executor configured", c.Name)
		}
		t := newTask(c, mode, KindHTTPRequest, "request")
		spec := c.HttpRequest
		t.Effect = func(ctx context.Context) error { return http.Do(ctx, spec) }
		return []*Task{t}, nil
	}

	if mode == ModeRemove && c.Kind == definition.KindStatefulSet {
		scale := newTask(c, mode, KindScaleDown, "scale-down")
		scale.StartProbeAfterApply = true
		scale.Effect = func(ctx context.Context) error { return applier.ScaleDown(ctx, c, 0) }

		del := newTask(c, mode, KindDelete, "delete")
		del.DontFailIfAlreadyExists = true
		del.Effect = func(ctx context.Context) error { return applier.Delete(ctx, c) }

		pvcs := newTask(c, mode, KindDeletePVCs, "delete-pvcs")
		pvcs.Effect = func(ctx context.Context) error { return applier.DeletePVCs(ctx, c) }

		return []*Task{scale, del, pvcs}, nil
	}

	if mode == ModeRemove {
		del := newTask(c, mode, KindDelete, "delete")
		del.DontFailIfAlreadyExists = true
		del.StartProbeAfterApply = probesOnRemove(c.Kind)
		del.Effect = func(ctx context.Context) error { return applier.Delete(ctx, c) }
		return []*Task{del}, nil
	}

	apply := newTask(c, mode, KindApply, "apply")
	apply.DontFailIfAlreadyExists = true
	apply.StartProbeAfterApply = probesOnCreate(c.Kind)
	apply.Effect = func(ctx context.Context) error { return applier.Apply(ctx, c, apply.DontFailIfAlreadyExists) }

	if c.Kind == definition.KindIngress && dns != nil {
		dnsTask := newTask(c, mode, KindDNSProvision, "dns")
		dnsTask.Effect = func(ctx context.Context) error { return dns.Provision(ctx, c) }
		return []*Task{apply, dnsTask}, nil
	}

	return []*Task{apply}, nil
}

// probesOnCreate reports whether an apply task should wait for the
// kind-specific readiness predicate (spec.md §4.6) before DONE.
func probesOnCreate(k definition.Kind) bool {
	switch k {
	case definition.KindDeployment, definition.KindJob, definition.KindStatefulSet,
		definition.KindDaemonSet, definition.KindPersistentVolume, definition.KindNamespace,
		definition.KindService, definition.KindIngress:
		return true
	default:
		return false
	}
}

// probesOnRemove reports whether a delete task should wait for the
// kind-specific predicate's remove-mode verdict before DONE.
func probesOnRemove(k definition.Kind) bool {
	switch k {
	case definition.KindStatefulSet, definition.KindDaemonSet:
		return true
	default:
		return false
	}
}

// linkComponentDeps wires c's entry task to depend on the exit task of
// every component it waits for (component.DependsOn, resolved by
// task.ResolveDependencies). Cluster dependencies get no task edge here.
func linkComponentDeps(g *Graph, c *component.Component, mode Mode) {
	entry := g.entry[c]
	if entry == nil {
		return
	}
	for _, dep := range c.DependsOn {
		if exit := g.exit[dep]; exit != nil {
			entry.DependsOn = append(entry.DependsOn, exit)
		}
	}
}

// linkParentRelation applies the deploy/remove ordering table of
// spec.md §4.5.
func linkParentRelation(g *Graph, c *component.Component, mode Mode) {
	parent := c.Parent
	if parent == nil {
		return
	}
	childEntry, childExit := g.entry[c], g.exit[c]
	parentEntry, parentExit := g.entry[parent], g.exit[parent]
	if childEntry == nil || parentEntry == nil {
		return
	}

	relation := c.ParentRelation
	switch {
	case relation == definition.After && mode == ModeCreate:
		childEntry.DependsOn = append(childEntry.DependsOn, parentExit)
	case relation == definition.After && mode == ModeRemove:
		parentEntry.DependsOn = append(parentEntry.DependsOn, childExit)
	case relation == definition.Before && mode == ModeCreate:
		parentEntry.DependsOn = append(parentEntry.DependsOn, childExit)
	case relation == definition.Before && mode == ModeRemove:
		childEntry.DependsOn = append(childEntry.DependsOn, parentExit)
	case relation == definition.Independent:
		// No ordering edge.
	}
}

// detectTaskCycles runs the same DFS as the component cycle check, over
// the task graph (spec.md §4.5 "after linking, task-graph cycles are
// detected identically to component cycles").
func detectTaskCycles(tasks []*Task) error {
	const (
		white = iota
		grey
		black
	)
	color := map[*Task]int{}

	var visit func(t *Task) error
	visit = func(t *Task) error {
		color[t] = grey
		for _, dep := range t.DependsOn {
			switch color[dep] {
			case grey:
				return fmt.Errorf("task dependency cycle detected at %q", dep.Name)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[t] = black
		return nil
	}

	for _, t := range tasks {
		if color[t] == white {
			if err := visit(t); err != nil {
				return err
			}
		}
	}
	return nil
}
