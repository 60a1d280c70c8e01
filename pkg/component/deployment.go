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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type deploymentBehaviour struct{}

func (deploymentBehaviour) PrepareDeploy(c *Component) error {
	if c.Deployment == nil {
		c.Deployment = &appsv1.Deployment{}
	}

	replicas := int32(1)
	if v, ok := c.Arg("replicas"); ok {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			replicas = int32(n)
		}
	}
	c.Deployment.Spec.Replicas = &replicas

	if c.Deployment.Spec.Selector == nil {
		c.Deployment.Spec.Selector = &metav1.LabelSelector{MatchLabels: c.selectorLabel()}
	}

	if err := c.basicPrepareDeploy(&c.Deployment.ObjectMeta, &c.Deployment.Spec.Template); err != nil {
		return err
	}

	return c.synthesizeImplicitChildren(replicas)
}

func (deploymentBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	d, ok := obj.(*appsv1.Deployment)
	if !ok {
		return ProbeDoesNotExist
	}
	for _, cond := range d.Status.Conditions {
		if cond.Type == appsv1.DeploymentAvailable && cond.Status == corev1.ConditionTrue {
			return ProbeDone
		}
	}
	return ProbePending
}
