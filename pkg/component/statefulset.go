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
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type statefulSetBehaviour struct{}

func (statefulSetBehaviour) PrepareDeploy(c *Component) error {
	if c.StatefulSet == nil {
		c.StatefulSet = &appsv1.StatefulSet{}
	}

	replicas := int32(1)
	if v, ok := c.Arg("replicas"); ok {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			replicas = int32(n)
		}
	}
	c.StatefulSet.Spec.Replicas = &replicas

	if c.StatefulSet.Spec.Selector == nil {
		c.StatefulSet.Spec.Selector = &metav1.LabelSelector{MatchLabels: c.selectorLabel()}
	}
	if c.StatefulSet.Spec.ServiceName == "" {
		c.StatefulSet.Spec.ServiceName = c.Name + "-svc"
	}

	if err := c.basicPrepareDeploy(&c.StatefulSet.ObjectMeta, &c.StatefulSet.Spec.Template); err != nil {
		return err
	}

	return c.synthesizeImplicitChildren(replicas)
}

func (statefulSetBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	s, ok := obj.(*appsv1.StatefulSet)
	if !ok {
		return ProbeDoesNotExist
	}

	wantReplicas := int32(1)
	if c.StatefulSet != nil && c.StatefulSet.Spec.Replicas != nil {
		wantReplicas = *c.StatefulSet.Spec.Replicas
	}

	if s.Status.ReadyReplicas == wantReplicas {
		return ProbeDone
	}
	return ProbePending
}

// ProbeRemove is consulted by the prober during the remove-mode scale-down
// task (spec.md S3): it is DONE once readyReplicas reaches 0.
func (statefulSetBehaviour) ProbeRemove(obj interface{}) ProbeResult {
	s, ok := obj.(*appsv1.StatefulSet)
	if !ok {
		return ProbeDoesNotExist
	}
	if s.Status.ReadyReplicas == 0 {
		return ProbeDone
	}
	return ProbePending
}
