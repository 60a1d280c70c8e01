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

package probe

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

// fakeGetter returns a scripted sequence of (object, error) pairs, one per
// call, repeating the last entry once exhausted.
type fakeGetter struct {
	results []interface{}
	errs    []error
	calls   int32
}

func (f *fakeGetter) Get(ctx context.Context, c *component.Component) (interface{}, error) {
	i := int(atomic.AddInt32(&f.calls, 1)) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.results[i], err
}

func deploymentComponent(t *testing.T) *component.Component {
	t.Helper()
	def := &definition.Node{
		Name: "web",
		Kind: definition.KindDeployment,
		Args: definition.Args{"image": "nginx"},
	}
	c, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))
	return c
}

func TestPollReturnsDoneWhenDeploymentAvailable(t *testing.T) {
	c := deploymentComponent(t)
	ready := &appsv1.Deployment{
		Status: appsv1.DeploymentStatus{
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: "True"},
			},
		},
	}
	g := &fakeGetter{results: []interface{}{ready}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outcome, err := Poll(ctx, g, c, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
}

func TestPollReturnsRemovedWhenObjectGoneInRemoveMode(t *testing.T) {
	c := deploymentComponent(t)
	g := &fakeGetter{results: []interface{}{nil}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outcome, err := Poll(ctx, g, c, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
}

func TestPollKeepsPollingUntilAvailable(t *testing.T) {
	c := deploymentComponent(t)
	pending := &appsv1.Deployment{}
	ready := &appsv1.Deployment{
		Status: appsv1.DeploymentStatus{
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: "True"},
			},
		},
	}
	g := &fakeGetter{results: []interface{}{pending, pending, ready}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := pollWithInterval(ctx, g, c, false, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&g.calls), int32(3))
}

func statefulSetComponent(t *testing.T) *component.Component {
	t.Helper()
	def := &definition.Node{
		Name: "pg",
		Kind: definition.KindStatefulSet,
		Args: definition.Args{"image": "postgres"},
	}
	c, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))
	return c
}

func TestPollUsesRemoveSpecificPredicateForStatefulSetScaleDown(t *testing.T) {
	c := statefulSetComponent(t)

	// Still has one ready replica: scale-down isn't finished, even though
	// the ordinary (deploy-mode) predicate would read this as "not yet at
	// desired count" too — the point of the test is that it's ProbeRemove,
	// not Probe, that gets consulted.
	notScaledDown := &appsv1.StatefulSet{Status: appsv1.StatefulSetStatus{ReadyReplicas: 1}}
	scaledDown := &appsv1.StatefulSet{Status: appsv1.StatefulSetStatus{ReadyReplicas: 0}}
	g := &fakeGetter{results: []interface{}{notScaledDown, scaledDown}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, err := pollWithInterval(ctx, g, c, true, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
}

func daemonSetComponent(t *testing.T) *component.Component {
	t.Helper()
	def := &definition.Node{
		Name: "agent",
		Kind: definition.KindDaemonSet,
		Args: definition.Args{"image": "agent"},
	}
	c, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))
	return c
}

func TestPollDaemonSetRemoveIgnoresNumberReadyAndWaitsForAbsence(t *testing.T) {
	c := daemonSetComponent(t)

	// NumberReady still >0 right after the DELETE call: the deploy-mode
	// predicate would read this as Done, but ProbeRemove must not.
	stillPresent := &appsv1.DaemonSet{Status: appsv1.DaemonSetStatus{NumberReady: 3}}
	g := &fakeGetter{results: []interface{}{stillPresent, stillPresent, nil}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, err := pollWithInterval(ctx, g, c, true, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&g.calls), int32(3))
}

func TestPollReturnsErrorOnGetFailure(t *testing.T) {
	c := deploymentComponent(t)
	g := &fakeGetter{results: []interface{}{nil}, errs: []error{assert.AnError}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Poll(ctx, g, c, false)
	assert.Error(t, err)
}
