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
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// The five RBAC kinds carry no implicit-child synthesis beyond metadata
// defaults: they exist so an App can grant permissions its pods need, and
// the task graph builder applies them as plain objects.

type roleBehaviour struct{}

func (roleBehaviour) PrepareDeploy(c *Component) error {
	if c.Role == nil {
		c.Role = &rbacv1.Role{}
	}
	return setNamespacedMeta(&c.Role.ObjectMeta, c)
}

func (roleBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*rbacv1.Role); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}

type clusterRoleBehaviour struct{}

func (clusterRoleBehaviour) PrepareDeploy(c *Component) error {
	if c.ClusterRole == nil {
		c.ClusterRole = &rbacv1.ClusterRole{}
	}
	if c.ClusterRole.ObjectMeta.Name == "" {
		c.ClusterRole.ObjectMeta.Name = c.Name
	}
	return nil
}

func (clusterRoleBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*rbacv1.ClusterRole); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}

type roleBindingBehaviour struct{}

func (roleBindingBehaviour) PrepareDeploy(c *Component) error {
	if c.RoleBinding == nil {
		c.RoleBinding = &rbacv1.RoleBinding{}
	}
	return setNamespacedMeta(&c.RoleBinding.ObjectMeta, c)
}

func (roleBindingBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*rbacv1.RoleBinding); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}

type clusterRoleBindingBehaviour struct{}

func (clusterRoleBindingBehaviour) PrepareDeploy(c *Component) error {
	if c.ClusterRoleBinding == nil {
		c.ClusterRoleBinding = &rbacv1.ClusterRoleBinding{}
	}
	if c.ClusterRoleBinding.ObjectMeta.Name == "" {
		c.ClusterRoleBinding.ObjectMeta.Name = c.Name
	}
	return nil
}

func (clusterRoleBindingBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*rbacv1.ClusterRoleBinding); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}

type serviceAccountBehaviour struct{}

func (serviceAccountBehaviour) PrepareDeploy(c *Component) error {
	if c.ServiceAccount == nil {
		c.ServiceAccount = &corev1.ServiceAccount{}
	}
	return setNamespacedMeta(&c.ServiceAccount.ObjectMeta, c)
}

func (serviceAccountBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*corev1.ServiceAccount); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}

func setNamespacedMeta(meta *metav1.ObjectMeta, c *Component) error {
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Namespace == "" {
		meta.Namespace = c.EffectiveNamespace()
	}
	return nil
}
