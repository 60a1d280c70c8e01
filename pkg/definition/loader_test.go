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

package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDefinition = `
name: app
kind: App
labels:
  cluster: ${clusterId}
args:
  image: myrepo/app:${tag,latest}
children:
  - name: cfg
    kind: ConfigMap
    parentRelation: BEFORE
    args:
      endpoint: http://${clusterIp}:8080
`

func writeTempDefinition(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "definition.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesYAMLIntoNodeTree(t *testing.T) {
	path := writeTempDefinition(t, sampleDefinition)

	root, err := Load(path, Variables{"clusterId": "c1", "clusterIp": "10.0.0.5"})
	require.NoError(t, err)

	assert.Equal(t, "app", root.Name)
	assert.Equal(t, KindApp, root.Kind)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "cfg", root.Children[0].Name)
	assert.Equal(t, Before, root.Children[0].ParentRelation)
}

func TestLoadExpandsVariablesInArgsAndLabels(t *testing.T) {
	path := writeTempDefinition(t, sampleDefinition)

	root, err := Load(path, Variables{"clusterId": "c1", "clusterIp": "10.0.0.5"})
	require.NoError(t, err)

	assert.Equal(t, "c1", root.Labels["cluster"])
	assert.Equal(t, "myrepo/app:latest", root.Args["image"])
	assert.Equal(t, "http://10.0.0.5:8080", root.Children[0].Args["endpoint"])
}

func TestLoadLeavesUnsetVariableWithoutDefaultEmpty(t *testing.T) {
	path := writeTempDefinition(t, sampleDefinition)

	root, err := Load(path, Variables{})
	require.NoError(t, err)

	assert.Equal(t, "", root.Labels["cluster"])
	assert.Equal(t, "myrepo/app:latest", root.Args["image"])
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Variables{})
	assert.Error(t, err)
}

func TestLoadReturnsErrorForUnterminatedMacro(t *testing.T) {
	path := writeTempDefinition(t, `
name: app
kind: App
args:
  broken: ${unterminated
`)
	_, err := Load(path, Variables{})
	assert.Error(t, err)
}

func TestExpandTreeExpandsStorageParams(t *testing.T) {
	root := &Node{
		Name: "db",
		Kind: KindStatefulSet,
		Storage: []StorageDef{
			{
				Name:      "${volName}",
				MountPath: "/data",
				Params:    Args{"server": "${nfsServer}"},
			},
		},
	}

	require.NoError(t, ExpandTree(root, Variables{"volName": "data-vol", "nfsServer": "nfs.internal"}))

	assert.Equal(t, "data-vol", root.Storage[0].Name)
	assert.Equal(t, "nfs.internal", root.Storage[0].Params["server"])
}
