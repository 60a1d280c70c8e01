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
	"fmt"
	"strings"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

// ResolveDependencies implements spec.md §4.4: after the tree (including
// synthesised children) exists, build namespace wait edges, same-cluster
// `depends` edges, and register cross-cluster dependencies, then reject
// cycles. clusterRef resolves a `clusterN:<name>` depends entry to a
// cross-cluster reference; pass nil if the cluster has no such peers
// (any such reference is then an error).
func ResolveDependencies(root *component.Component, mode Mode, clusterRef func(ref string) (clusterName string, ok bool)) error {
	byName := map[string]*component.Component{}
	root.Walk(func(c *component.Component) {
		byName[c.Name] = c
	})

	var namespaces []*component.Component
	root.Walk(func(c *component.Component) {
		if c.Kind == definition.KindNamespace {
			namespaces = append(namespaces, c)
		}
	})
	for _, ns := range namespaces {
		root.Walk(func(c *component.Component) {
			if c == ns || c.Kind == definition.KindNamespace {
				return
			}
			if c.EffectiveNamespace() != ns.Name {
				return
			}
			addEdge(c, ns, mode)
		})
	}

	var resolveErr error
	root.Walk(func(c *component.Component) {
		if resolveErr != nil {
			return
		}
		for _, dep := range c.Depends {
			if clusterN, name, ok := splitClusterRef(dep); ok {
				if clusterRef != nil {
					if clusterName, found := clusterRef(clusterN); found {
						c.ClusterDependsOn = append(c.ClusterDependsOn, &component.ClusterDependency{
							ClusterName:   clusterName,
							ComponentName: name,
						})
						continue
					}
				}
				resolveErr = fmt.Errorf("component %s: unknown cluster reference %q", c.Name, dep)
				return
			}

			target, ok := byName[dep]
			if !ok {
				resolveErr = fmt.Errorf("component %s: depends on unknown component %q", c.Name, dep)
				return
			}
			addEdge(c, target, mode)
		}
	})
	if resolveErr != nil {
		return resolveErr
	}

	return detectCycles(root)
}

// addEdge adds a "c waits for target" edge, reversed under remove mode
// (spec.md §4.4 item 3: dependents run before their dependencies when
// tearing down).
func addEdge(c, target *component.Component, mode Mode) {
	if mode == ModeRemove {
		target.DependsOn = append(target.DependsOn, c)
		return
	}
	c.DependsOn = append(c.DependsOn, target)
}

// splitClusterRef recognises the `clusterN:name` depends syntax (spec.md §3).
func splitClusterRef(dep string) (clusterRef, name string, ok bool) {
	prefix, rest, found := strings.Cut(dep, ":")
	if !found || !strings.HasPrefix(prefix, "cluster") {
		return "", "", false
	}
	return prefix, rest, true
}

// detectCycles runs a DFS from every component over dependsOn, matching
// spec.md §4.4 item 4: reaching self again is an error.
func detectCycles(root *component.Component) error {
	const (
		white = iota
		grey
		black
	)
	color := map[*component.Component]int{}

	var visit func(c *component.Component) error
	visit = func(c *component.Component) error {
		color[c] = grey
		for _, dep := range c.DependsOn {
			switch color[dep] {
			case grey:
				return fmt.Errorf("dependency cycle detected at component %q", dep.Name)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[c] = black
		return nil
	}

	var err error
	root.Walk(func(c *component.Component) {
		if err != nil {
			return
		}
		if color[c] == white {
			err = visit(c)
		}
	})
	return err
}
