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

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
	"github.com/jgaa/k8dep/pkg/task"
)

func TestComponentTreeIncludesEveryComponentAndRelation(t *testing.T) {
	def := &definition.Node{
		Name: "app",
		Kind: definition.KindApp,
		Children: []*definition.Node{
			{Name: "cfg", Kind: definition.KindConfigMap, ParentRelation: definition.Before},
		},
	}
	c, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))

	out := ComponentTree(c)
	assert.Contains(t, out, "app")
	assert.Contains(t, out, "cfg")
	assert.Contains(t, out, "BEFORE")
}

func TestTaskGraphDelegatesToGraphDot(t *testing.T) {
	def := &definition.Node{Name: "cfg", Kind: definition.KindConfigMap}
	c, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))

	g, err := task.BuildTasks(c, task.ModeCreate, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, g.Dot(), TaskGraph(g))
}
