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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

func withNamespaceArg(ns string) definition.Args {
	return definition.Args{"namespace": ns}
}

func TestResolveDependenciesSameClusterDeployEdge(t *testing.T) {
	root := &component.Component{Name: "app", Kind: definition.KindApp}
	a := &component.Component{Name: "a", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}}
	b := &component.Component{Name: "b", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}, Depends: []string{"a"}}
	root.Children = []*component.Component{a, b}

	require.NoError(t, ResolveDependencies(root, ModeCreate, nil))
	require.Len(t, b.DependsOn, 1)
	assert.Same(t, a, b.DependsOn[0])
	assert.Empty(t, a.DependsOn)
}

func TestResolveDependenciesReversedOnRemove(t *testing.T) {
	root := &component.Component{Name: "app", Kind: definition.KindApp}
	a := &component.Component{Name: "a", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}}
	b := &component.Component{Name: "b", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}, Depends: []string{"a"}}
	root.Children = []*component.Component{a, b}

	require.NoError(t, ResolveDependencies(root, ModeRemove, nil))
	require.Len(t, a.DependsOn, 1)
	assert.Same(t, b, a.DependsOn[0])
	assert.Empty(t, b.DependsOn)
}

func TestResolveDependenciesNamespaceEdge(t *testing.T) {
	ns := &component.Component{Name: "ns1", Kind: definition.KindNamespace, Args: definition.Args{}}
	root := &component.Component{Name: "app", Kind: definition.KindApp, Args: definition.Args{}}
	web := &component.Component{Name: "web", Kind: definition.KindDeployment, Parent: root, Args: withNamespaceArg("ns1")}
	root.Children = []*component.Component{ns, web}
	ns.Parent = root
	web.ResolveArgs()

	require.NoError(t, ResolveDependencies(root, ModeCreate, nil))
	require.Len(t, web.DependsOn, 1)
	assert.Same(t, ns, web.DependsOn[0])
}

func TestResolveDependenciesUnknownNameErrors(t *testing.T) {
	root := &component.Component{Name: "app", Kind: definition.KindApp}
	a := &component.Component{Name: "a", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}, Depends: []string{"missing"}}
	root.Children = []*component.Component{a}

	err := ResolveDependencies(root, ModeCreate, nil)
	assert.Error(t, err)
}

func TestResolveDependenciesClusterRef(t *testing.T) {
	root := &component.Component{Name: "app", Kind: definition.KindApp}
	a := &component.Component{Name: "a", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}, Depends: []string{"cluster1:remote-thing"}}
	root.Children = []*component.Component{a}

	resolver := func(ref string) (string, bool) {
		if ref == "cluster1" {
			return "staging", true
		}
		return "", false
	}
	require.NoError(t, ResolveDependencies(root, ModeCreate, resolver))
	require.Len(t, a.ClusterDependsOn, 1)
	assert.Equal(t, "staging", a.ClusterDependsOn[0].ClusterName)
	assert.Equal(t, "remote-thing", a.ClusterDependsOn[0].ComponentName)
}

func TestResolveDependenciesDetectsCycle(t *testing.T) {
	root := &component.Component{Name: "app", Kind: definition.KindApp}
	a := &component.Component{Name: "a", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}, Depends: []string{"b"}}
	b := &component.Component{Name: "b", Kind: definition.KindConfigMap, Parent: root, Args: definition.Args{}, Depends: []string{"a"}}
	root.Children = []*component.Component{a, b}

	err := ResolveDependencies(root, ModeCreate, nil)
	assert.Error(t, err)
}
