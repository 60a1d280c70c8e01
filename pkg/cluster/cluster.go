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

// Package cluster models one target Kubernetes cluster: its name, its
// variable mapping, its component tree, and the four startup barriers
// named in spec.md §3/§4.7. Grounded on original_source/include/k8deployer/
// Cluster.h.
package cluster

import (
	"sync"

	"github.com/jgaa/k8dep/pkg/component"
)

// Cluster holds everything the orchestrator needs to drive one cluster's
// component tree to completion. It does not itself run the event loop —
// that is pkg/orchestrator's job, kept separate so pkg/cluster has no
// dependency on pkg/task/pkg/kube.
type Cluster struct {
	Name           string
	KubeconfigPath string

	// Vars is the cluster's variable mapping (clusterId, clusterIp,
	// namespace, plus any user -v declarations), consulted by the
	// definition loader's macro expander before the tree is built.
	Vars map[string]string

	// Root is set once the component tree has been built (spec.md §4.2).
	Root *component.Component

	// Runtime is the cluster's posting point for cross-cluster callbacks
	// (spec.md §9 "State listeners across clusters... do not call
	// listener functions synchronously on the source cluster's thread").
	Runtime *Runtime

	VarsReady            *Barrier
	DefinitionsReady     *Barrier
	BasicComponentsReady *Barrier
	PreparedReady        *Barrier

	mu        sync.Mutex
	byName    map[string]*component.Component
	listeners map[string][]func(*component.Component)
}

// New returns a Cluster with its four barriers unsignalled and no root
// yet attached.
func New(name, kubeconfigPath string, vars map[string]string) *Cluster {
	if vars == nil {
		vars = map[string]string{}
	}
	return &Cluster{
		Name:                 name,
		KubeconfigPath:       kubeconfigPath,
		Vars:                 vars,
		Runtime:              NewRuntime(),
		VarsReady:            NewBarrier(),
		DefinitionsReady:     NewBarrier(),
		BasicComponentsReady: NewBarrier(),
		PreparedReady:        NewBarrier(),
		listeners:            map[string][]func(*component.Component){},
	}
}

// SetRoot attaches the built component tree and indexes every component by
// name for GetComponent lookups (Cluster::add in the original, called once
// per component as it's constructed; here done in one pass since Build
// already returns the whole tree).
func (cl *Cluster) SetRoot(root *component.Component) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.Root = root
	cl.byName = map[string]*component.Component{}
	root.Walk(func(c *component.Component) {
		cl.byName[c.Name] = c
	})
}

// GetVar returns the named cluster variable.
func (cl *Cluster) GetVar(key string) (string, bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	v, ok := cl.Vars[key]
	return v, ok
}

// GetComponent looks up a component by name within this cluster, mirroring
// Cluster::getComponent.
func (cl *Cluster) GetComponent(name string) (*component.Component, bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	c, ok := cl.byName[name]
	return c, ok
}

// AddStateListener registers fn to be invoked directly by NotifyStateChange
// on every state change of componentName's component, not only on
// component.StateDone. Returns false if no such component exists
// yet, mirroring Cluster::addStateListener's bool return.
func (cl *Cluster) AddStateListener(componentName string, fn func(*component.Component)) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.byName[componentName]; !ok {
		return false
	}
	cl.listeners[componentName] = append(cl.listeners[componentName], fn)
	return true
}

// NotifyStateChange is called by the orchestrator's per-cluster loop each
// time a component's state changes; it invokes every listener registered
// for that component directly, on this (the source) cluster's own
// runtime/goroutine — matching "state listeners are invoked on the source
// cluster's thread" (spec.md §4.7). A cross-cluster subscriber's listener
// closure is itself responsible for reposting onto its own cluster's
// Runtime before touching its own component state (spec.md §9);
// Coordinator.WireClusterDependencies builds that closure.
func (cl *Cluster) NotifyStateChange(c *component.Component) {
	cl.mu.Lock()
	fns := append([]func(*component.Component){}, cl.listeners[c.Name]...)
	cl.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
