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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

func buildTree(t *testing.T) *component.Component {
	t.Helper()
	def := &definition.Node{
		Name: "web",
		Kind: definition.KindDeployment,
		Args: definition.Args{"image": "nginx"},
	}
	root, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(root))
	return root
}

func TestNewClusterHasUnsignalledBarriers(t *testing.T) {
	cl := New("cluster1", "", nil)
	assert.False(t, cl.VarsReady.Signalled())
	assert.False(t, cl.DefinitionsReady.Signalled())
	assert.False(t, cl.BasicComponentsReady.Signalled())
	assert.False(t, cl.PreparedReady.Signalled())
}

func TestGetVarReturnsDeclaredVariable(t *testing.T) {
	cl := New("cluster1", "", map[string]string{"namespace": "prod"})
	v, ok := cl.GetVar("namespace")
	require.True(t, ok)
	assert.Equal(t, "prod", v)

	_, ok = cl.GetVar("missing")
	assert.False(t, ok)
}

func TestSetRootIndexesEveryComponentByName(t *testing.T) {
	cl := New("cluster1", "", nil)
	root := buildTree(t)
	cl.SetRoot(root)

	web, ok := cl.GetComponent("web")
	require.True(t, ok)
	assert.Equal(t, "web", web.Name)

	svc, ok := cl.GetComponent("web-svc")
	require.True(t, ok)
	assert.Equal(t, definition.KindService, svc.Kind)

	_, ok = cl.GetComponent("does-not-exist")
	assert.False(t, ok)
}

func TestAddStateListenerFailsForUnknownComponent(t *testing.T) {
	cl := New("cluster1", "", nil)
	cl.SetRoot(buildTree(t))

	ok := cl.AddStateListener("ghost", func(*component.Component) {})
	assert.False(t, ok)
}

func TestNotifyStateChangeInvokesRegisteredListeners(t *testing.T) {
	cl := New("cluster1", "", nil)
	cl.SetRoot(buildTree(t))

	var seen *component.Component
	ok := cl.AddStateListener("web", func(c *component.Component) { seen = c })
	require.True(t, ok)

	web, _ := cl.GetComponent("web")
	cl.NotifyStateChange(web)

	require.NotNil(t, seen)
	assert.Equal(t, "web", seen.Name)
}
