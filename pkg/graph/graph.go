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

// Package graph renders the `k8dep depends` DOT output (spec.md §6
// mentions "an optional DOT file"; SPEC_FULL.md §C.4 makes it concrete):
// the component tree, and the task dependency graph. Task-graph
// rendering already lives on task.Graph.Dot; this package only adds the
// component-tree half and a combined entry point, so callers don't need
// to know pkg/task exposes its own renderer.
package graph

import (
	"fmt"

	"github.com/emicklei/dot"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/task"
)

// ComponentTree renders root's parent/child structure as a Graphviz DOT
// document: one node per component, labelled with its kind and current
// state, one edge per parent/child relation labelled BEFORE/AFTER/
// INDEPENDENT (spec.md §4.1's tree shape).
func ComponentTree(root *component.Component) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")

	nodes := map[*component.Component]dot.Node{}
	root.Walk(func(c *component.Component) {
		n := g.Node(c.Name).Label(fmt.Sprintf("%s\n[%s]\n%s", c.Name, c.Kind, c.State))
		nodes[c] = n
	})
	root.Walk(func(c *component.Component) {
		for _, child := range c.Children {
			g.Edge(nodes[c], nodes[child]).Label(string(child.ParentRelation))
		}
	})
	return g.String()
}

// TaskGraph renders g as a Graphviz DOT document. Thin forwarder so
// callers needing both renderers only import this package.
func TaskGraph(g *task.Graph) string {
	return g.Dot()
}
