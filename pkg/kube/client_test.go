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

package kube

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

func deploymentComponent(name string) *component.Component {
	return &component.Component{
		Name: name,
		Kind: definition.KindDeployment,
		Args: definition.Args{},
		Deployment: &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		},
	}
}

func TestClientApplyCreatesObject(t *testing.T) {
	cs := fake.NewSimpleClientset()
	c := NewClientForInterface(cs)

	comp := deploymentComponent("web")
	require.NoError(t, c.Apply(context.Background(), comp, true))

	got, err := cs.AppsV1().Deployments("default").Get(context.Background(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "web", got.Name)
}

func TestClientApplyFallsBackToUpdateOnAlreadyExists(t *testing.T) {
	existing := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default", ResourceVersion: "1"}}
	cs := fake.NewSimpleClientset(existing)
	c := NewClientForInterface(cs)

	comp := deploymentComponent("web")
	comp.Deployment.Labels = map[string]string{"updated": "true"}
	require.NoError(t, c.Apply(context.Background(), comp, true))

	got, err := cs.AppsV1().Deployments("default").Get(context.Background(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "true", got.Labels["updated"])
}

func TestClientApplyAlreadyExistsWithoutFallbackErrors(t *testing.T) {
	existing := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"}}
	cs := fake.NewSimpleClientset(existing)
	c := NewClientForInterface(cs)

	err := c.Apply(context.Background(), deploymentComponent("web"), false)
	assert.Error(t, err)
}

func TestClientDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	cs := fake.NewSimpleClientset()
	c := NewClientForInterface(cs)

	err := c.Delete(context.Background(), deploymentComponent("ghost"))
	assert.NoError(t, err)
}

func TestClientGetReturnsNilOnNotFound(t *testing.T) {
	cs := fake.NewSimpleClientset()
	c := NewClientForInterface(cs)

	obj, err := c.Get(context.Background(), deploymentComponent("ghost"))
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestClientGetReturnsLiveObject(t *testing.T) {
	existing := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"}}
	cs := fake.NewSimpleClientset(existing)
	c := NewClientForInterface(cs)

	obj, err := c.Get(context.Background(), deploymentComponent("web"))
	require.NoError(t, err)
	d, ok := obj.(*appsv1.Deployment)
	require.True(t, ok)
	assert.Equal(t, "web", d.Name)
}

func statefulSetComponent(name string) *component.Component {
	return &component.Component{
		Name: name,
		Kind: definition.KindStatefulSet,
		Args: definition.Args{},
		StatefulSet: &appsv1.StatefulSet{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
			Spec: appsv1.StatefulSetSpec{
				Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": name}},
			},
		},
	}
}

func TestClientScaleDownPatchesReplicas(t *testing.T) {
	replicas := int32(3)
	existing := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "default"},
		Spec:       appsv1.StatefulSetSpec{Replicas: &replicas},
	}
	cs := fake.NewSimpleClientset(existing)
	c := NewClientForInterface(cs)

	require.NoError(t, c.ScaleDown(context.Background(), statefulSetComponent("db"), 0))

	got, err := cs.AppsV1().StatefulSets("default").Get(context.Background(), "db", metav1.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, got.Spec.Replicas)
	assert.EqualValues(t, 0, *got.Spec.Replicas)
}

func TestClientDeletePVCsForStatefulSet(t *testing.T) {
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: "db-data-0", Namespace: "default", Labels: map[string]string{"app": "db"}},
	}
	other := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: "unrelated", Namespace: "default", Labels: map[string]string{"app": "other"}},
	}
	cs := fake.NewSimpleClientset(pvc, other)
	c := NewClientForInterface(cs)

	require.NoError(t, c.DeletePVCs(context.Background(), statefulSetComponent("db")))

	list, err := cs.CoreV1().PersistentVolumeClaims("default").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "unrelated", list.Items[0].Name)
}
