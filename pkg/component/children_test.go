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

package component

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

func newDeploymentComponent(t *testing.T, args definition.Args) *Component {
	t.Helper()
	b, err := behaviourFor(definition.KindDeployment)
	require.NoError(t, err)
	c := &Component{
		Name:       "web",
		Kind:       definition.KindDeployment,
		Args:       args,
		Labels:     definition.Args{},
		State:      StatePre,
		Behaviour:  b,
		Deployment: &appsv1.Deployment{},
	}
	c.ResolveArgs()
	require.NoError(t, c.basicPrepareDeploy(&c.Deployment.ObjectMeta, &c.Deployment.Spec.Template))
	return c
}

func TestSynthesizeServiceSkippedWhenDisabled(t *testing.T) {
	c := newDeploymentComponent(t, definition.Args{
		"image": "nginx", "port": "80", "service.enabled": "false",
	})
	require.NoError(t, c.synthesizeImplicitChildren(1))
	assert.False(t, c.hasChildOfKind(definition.KindService))
}

func TestSynthesizeServiceSkippedWhenChildExists(t *testing.T) {
	c := newDeploymentComponent(t, definition.Args{"image": "nginx", "port": "80"})
	existing := c.newChild("web-svc", definition.KindService)
	require.NoError(t, c.synthesizeImplicitChildren(1))

	count := 0
	for _, ch := range c.Children {
		if ch.Kind == definition.KindService {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Same(t, existing, c.Children[0])
}

func TestSynthesizeConfigMapFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.conf")
	require.NoError(t, os.WriteFile(path, []byte("key=value\n"), 0o644))

	c := newDeploymentComponent(t, definition.Args{
		"image": "nginx", "port": "80", "config.fromFile": path,
	})
	require.NoError(t, c.synthesizeConfigMapFromFiles())

	require.True(t, c.hasChildOfKind(definition.KindConfigMap))
	var cm *Component
	for _, ch := range c.Children {
		if ch.Kind == definition.KindConfigMap {
			cm = ch
		}
	}
	require.NotNil(t, cm)
	assert.Equal(t, "web-config", cm.Name)
	assert.Equal(t, []byte("key=value\n"), cm.ConfigMap.BinaryData["app.conf"])

	podTemplate := c.PodTemplate()
	require.NotNil(t, podTemplate)
	require.Len(t, podTemplate.Spec.Volumes, 1)
	assert.Equal(t, "config", podTemplate.Spec.Volumes[0].Name)
	assert.Equal(t, "web-config", podTemplate.Spec.Volumes[0].ConfigMap.Name)
	require.Len(t, podTemplate.Spec.Containers[0].VolumeMounts, 1)
	assert.Equal(t, "/config", podTemplate.Spec.Containers[0].VolumeMounts[0].MountPath)
}

func TestSynthesizeSecretFromDockerLogin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"auths":{}}`), 0o644))

	c := newDeploymentComponent(t, definition.Args{
		"image": "nginx", "port": "80", "imagePullSecrets.fromDockerLogin": path,
	})
	require.NoError(t, c.synthesizeSecretFromDockerLogin())

	require.True(t, c.hasChildOfKind(definition.KindSecret))
	var secret *Component
	for _, ch := range c.Children {
		if ch.Kind == definition.KindSecret {
			secret = ch
		}
	}
	require.NotNil(t, secret)
	assert.Equal(t, "web-dockerlogin", secret.Name)
	assert.Equal(t, []byte(`{"auths":{}}`), secret.Secret.Data[".dockerconfigjson"])

	podTemplate := c.PodTemplate()
	require.NotNil(t, podTemplate)
	require.Len(t, podTemplate.Spec.ImagePullSecrets, 1)
	assert.Equal(t, "web-dockerlogin", podTemplate.Spec.ImagePullSecrets[0].Name)
}

func TestSynthesizeStoragePerReplica(t *testing.T) {
	c := newDeploymentComponent(t, definition.Args{"image": "nginx", "port": "80"})
	c.Storage = []definition.StorageDef{
		{Name: "data", CreateVolume: true, Capacity: "1Gi", MountPath: "/data", Backend: "hostPath"},
	}

	require.NoError(t, c.synthesizeStorage(3))

	var pvs []*Component
	for _, ch := range c.Children {
		if ch.Kind == definition.KindPersistentVolume {
			pvs = append(pvs, ch)
		}
	}
	require.Len(t, pvs, 3)
	assert.Equal(t, "web-data-0", pvs[0].Name)
	assert.Equal(t, "web-data-2", pvs[2].Name)

	podTemplate := c.PodTemplate()
	require.NotNil(t, podTemplate)
	require.Len(t, podTemplate.Spec.Volumes, 1)
	assert.Equal(t, "data", podTemplate.Spec.Volumes[0].Name)
	require.NotNil(t, podTemplate.Spec.Volumes[0].PersistentVolumeClaim)
	assert.Equal(t, "data", podTemplate.Spec.Volumes[0].PersistentVolumeClaim.ClaimName)
}
