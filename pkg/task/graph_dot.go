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

	"github.com/emicklei/dot"
)

// Dot renders the task graph as a Graphviz DOT document, consumed by
// `k8dep depends` to visualise build order ahead of a real deploy/remove.
func (g *Graph) Dot() string {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")

	nodes := make(map[*Task]dot.Node, len(g.Tasks))
	for _, t := range g.Tasks {
		n := graph.Node(fmt.Sprintf("t%d", t.ID)).Label(fmt.Sprintf("%s\n[%s]", t.Name, t.Kind))
		nodes[t] = n
	}
	for _, t := range g.Tasks {
		for _, dep := range t.DependsOn {
			graph.Edge(nodes[dep], nodes[t])
		}
	}
	return graph.String()
}
