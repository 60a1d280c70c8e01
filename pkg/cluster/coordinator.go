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
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jgaa/k8dep/pkg/component"
)

// Coordinator is the root cross-cluster coordinator of spec.md §4.7: it
// holds every cluster named on the command line (in `-k` order) and runs
// the three sequential phases (prepare, execute, drain) each in parallel
// across clusters. Grounded on Engine.cpp's top-level run sequence, which
// calls Cluster::prepare/execute/pendingWork on every cluster and joins
// each phase's futures before starting the next.
type Coordinator struct {
	clusters []*Cluster
	byName   map[string]*Cluster
}

// NewCoordinator indexes clusters by name and by their 1-based `-k`
// position, the latter consulted by ClusterRef to resolve a `clusterN:`
// depends reference (spec.md §3).
func NewCoordinator(clusters ...*Cluster) *Coordinator {
	byName := make(map[string]*Cluster, len(clusters))
	for _, c := range clusters {
		byName[c.Name] = c
	}
	return &Coordinator{clusters: clusters, byName: byName}
}

// ByName returns the cluster registered under name.
func (co *Coordinator) ByName(name string) (*Cluster, bool) {
	c, ok := co.byName[name]
	return c, ok
}

// Clusters returns every cluster, in `-k` order.
func (co *Coordinator) Clusters() []*Cluster {
	return append([]*Cluster(nil), co.clusters...)
}

// ClusterRef implements the callback signature task.ResolveDependencies
// expects: it resolves a positional `clusterN` token (1-based, matching
// the order clusters were given on the command line) to that cluster's
// name.
func (co *Coordinator) ClusterRef() func(ref string) (string, bool) {
	return func(ref string) (string, bool) {
		var n int
		if _, err := fmt.Sscanf(ref, "cluster%d", &n); err != nil {
			return "", false
		}
		if n < 1 || n > len(co.clusters) {
			return "", false
		}
		return co.clusters[n-1].Name, true
	}
}

// phase runs fn against every cluster concurrently and joins before
// returning. Unlike errgroup.WithContext, it never cancels a shared
// context on the first error: spec.md §4.7 requires that "exceptions
// surface per cluster but do not abort peers in the current phase," so
// every per-cluster fn always runs to completion and every error (not
// just the first) is reported.
func (co *Coordinator) phase(ctx context.Context, fn func(ctx context.Context, cl *Cluster) error) error {
	var g errgroup.Group
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, cl := range co.clusters {
		cl := cl
		g.Go(func() error {
			if err := fn(ctx, cl); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("cluster %s: %w", cl.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Prepare runs prepareFn (definition load, tree construction,
// prepareDeploy, dependency resolution) across every cluster in parallel,
// joining before Execute may begin.
func (co *Coordinator) Prepare(ctx context.Context, prepareFn func(ctx context.Context, cl *Cluster) error) error {
	return co.phase(ctx, prepareFn)
}

// Execute runs executeFn (the orchestrator's runTasks loop to completion)
// across every cluster in parallel.
func (co *Coordinator) Execute(ctx context.Context, executeFn func(ctx context.Context, cl *Cluster) error) error {
	return co.phase(ctx, executeFn)
}

// Drain runs drainFn (pending log/event streaming shutdown) across every
// cluster in parallel, the third and final phase.
func (co *Coordinator) Drain(ctx context.Context, drainFn func(ctx context.Context, cl *Cluster) error) error {
	return co.phase(ctx, drainFn)
}

// WireClusterDependencies registers a cross-cluster listener for every
// component.ClusterDependency produced by task.ResolveDependencies, once
// every cluster's tree has a Root (spec.md §9). The listener fires on the
// target component's own cluster thread and reposts the MarkDone call onto
// the dependent's Runtime, so the dependent's own event loop is the only
// goroutine that ever touches its ClusterDependency's state — matching
// Cluster.NotifyStateChange's documented contract.
func (co *Coordinator) WireClusterDependencies() error {
	for _, cl := range co.clusters {
		cl := cl
		var wireErr error
		cl.Root.Walk(func(c *component.Component) {
			if wireErr != nil {
				return
			}
			for _, cd := range c.ClusterDependsOn {
				target, ok := co.ByName(cd.ClusterName)
				if !ok {
					wireErr = fmt.Errorf("cluster %s: component %s: unknown cluster %q", cl.Name, c.Name, cd.ClusterName)
					return
				}
				cd := cd
				registered := target.AddStateListener(cd.ComponentName, func(remote *component.Component) {
					if remote.State != component.StateDone {
						return
					}
					cl.Runtime.Post(cd.MarkDone)
				})
				if !registered {
					wireErr = fmt.Errorf("cluster %s: component %s: unknown component %q in cluster %q", cl.Name, c.Name, cd.ComponentName, cd.ClusterName)
					return
				}
			}
		})
		if wireErr != nil {
			return wireErr
		}
	}
	return nil
}
