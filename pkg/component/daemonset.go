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
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type daemonSetBehaviour struct{}

func (daemonSetBehaviour) PrepareDeploy(c *Component) error {
	if c.DaemonSet == nil {
		c.DaemonSet = &appsv1.DaemonSet{}
	}

	if c.DaemonSet.Spec.Selector == nil {
		c.DaemonSet.Spec.Selector = &metav1.LabelSelector{MatchLabels: c.selectorLabel()}
	}

	if err := c.basicPrepareDeploy(&c.DaemonSet.ObjectMeta, &c.DaemonSet.Spec.Template); err != nil {
		return err
	}

	// DaemonSets run one pod per node: there is no fixed replica count to
	// synthesise per-replica PersistentVolumes against, so storage entries
	// with createVolume are synthesised once (replicas=1) the way the
	// original treats non-StatefulSet pod-bearing kinds.
	return c.synthesizeImplicitChildren(1)
}

func (daemonSetBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	d, ok := obj.(*appsv1.DaemonSet)
	if !ok {
		return ProbeDoesNotExist
	}
	if d.Status.NumberReady > 0 {
		return ProbeDone
	}
	return ProbePending
}

// ProbeRemove reports DONE only by the object's absence: NumberReady
// commonly stays >0 for a moment after a DELETE while node-local pods are
// still being torn down, so it is not a valid remove-mode signal the way
// it is for Probe's deploy-mode reading.
func (daemonSetBehaviour) ProbeRemove(obj interface{}) ProbeResult {
	if _, ok := obj.(*appsv1.DaemonSet); !ok {
		return ProbeDoesNotExist
	}
	return ProbePending
}
