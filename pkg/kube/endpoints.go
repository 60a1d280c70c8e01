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
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

func isNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// createObject maps a Kind to its typed clientset Create call, mirroring
// the REST path/verb table implied by spec.md §4.6's "Deploy tasks POST
// the JSON body to the kind's creation endpoint."
func createObject(ctx context.Context, cs kubernetes.Interface, c *component.Component) error {
	ns := c.EffectiveNamespace()
	opts := metav1.CreateOptions{}

	switch c.Kind {
	case definition.KindJob:
		_, err := cs.BatchV1().Jobs(ns).Create(ctx, c.Job, opts)
		return err
	case definition.KindDeployment:
		_, err := cs.AppsV1().Deployments(ns).Create(ctx, c.Deployment, opts)
		return err
	case definition.KindStatefulSet:
		_, err := cs.AppsV1().StatefulSets(ns).Create(ctx, c.StatefulSet, opts)
		return err
	case definition.KindDaemonSet:
		_, err := cs.AppsV1().DaemonSets(ns).Create(ctx, c.DaemonSet, opts)
		return err
	case definition.KindService:
		_, err := cs.CoreV1().Services(ns).Create(ctx, c.Service, opts)
		return err
	case definition.KindConfigMap:
		_, err := cs.CoreV1().ConfigMaps(ns).Create(ctx, c.ConfigMap, opts)
		return err
	case definition.KindSecret:
		_, err := cs.CoreV1().Secrets(ns).Create(ctx, c.Secret, opts)
		return err
	case definition.KindPersistentVolume:
		_, err := cs.CoreV1().PersistentVolumes().Create(ctx, c.PersistentVolume, opts)
		return err
	case definition.KindIngress:
		_, err := cs.NetworkingV1().Ingresses(ns).Create(ctx, c.Ingress, opts)
		return err
	case definition.KindNamespace:
		_, err := cs.CoreV1().Namespaces().Create(ctx, c.Namespace, opts)
		return err
	case definition.KindRole:
		_, err := cs.RbacV1().Roles(ns).Create(ctx, c.Role, opts)
		return err
	case definition.KindClusterRole:
		_, err := cs.RbacV1().ClusterRoles().Create(ctx, c.ClusterRole, opts)
		return err
	case definition.KindRoleBinding:
		_, err := cs.RbacV1().RoleBindings(ns).Create(ctx, c.RoleBinding, opts)
		return err
	case definition.KindClusterRoleBinding:
		_, err := cs.RbacV1().ClusterRoleBindings().Create(ctx, c.ClusterRoleBinding, opts)
		return err
	case definition.KindServiceAccount:
		_, err := cs.CoreV1().ServiceAccounts(ns).Create(ctx, c.ServiceAccount, opts)
		return err
	default:
		return fmt.Errorf("kind %q has no Kubernetes object to apply", c.Kind)
	}
}

// updateObject is the PATCH-equivalent fallback for an already-exists
// apply (spec.md §4.6): fetch the live object's resourceVersion, stamp it
// onto the desired object, then Update.
func updateObject(ctx context.Context, cs kubernetes.Interface, c *component.Component) error {
	ns := c.EffectiveNamespace()
	opts := metav1.UpdateOptions{}

	switch c.Kind {
	case definition.KindJob:
		live, err := cs.BatchV1().Jobs(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Job.ResourceVersion = live.ResourceVersion
		_, err = cs.BatchV1().Jobs(ns).Update(ctx, c.Job, opts)
		return err
	case definition.KindDeployment:
		live, err := cs.AppsV1().Deployments(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Deployment.ResourceVersion = live.ResourceVersion
		_, err = cs.AppsV1().Deployments(ns).Update(ctx, c.Deployment, opts)
		return err
	case definition.KindStatefulSet:
		live, err := cs.AppsV1().StatefulSets(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.StatefulSet.ResourceVersion = live.ResourceVersion
		_, err = cs.AppsV1().StatefulSets(ns).Update(ctx, c.StatefulSet, opts)
		return err
	case definition.KindDaemonSet:
		live, err := cs.AppsV1().DaemonSets(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.DaemonSet.ResourceVersion = live.ResourceVersion
		_, err = cs.AppsV1().DaemonSets(ns).Update(ctx, c.DaemonSet, opts)
		return err
	case definition.KindService:
		live, err := cs.CoreV1().Services(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Service.ResourceVersion = live.ResourceVersion
		c.Service.Spec.ClusterIP = live.Spec.ClusterIP
		_, err = cs.CoreV1().Services(ns).Update(ctx, c.Service, opts)
		return err
	case definition.KindConfigMap:
		live, err := cs.CoreV1().ConfigMaps(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.ConfigMap.ResourceVersion = live.ResourceVersion
		_, err = cs.CoreV1().ConfigMaps(ns).Update(ctx, c.ConfigMap, opts)
		return err
	case definition.KindSecret:
		live, err := cs.CoreV1().Secrets(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Secret.ResourceVersion = live.ResourceVersion
		_, err = cs.CoreV1().Secrets(ns).Update(ctx, c.Secret, opts)
		return err
	case definition.KindIngress:
		live, err := cs.NetworkingV1().Ingresses(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Ingress.ResourceVersion = live.ResourceVersion
		_, err = cs.NetworkingV1().Ingresses(ns).Update(ctx, c.Ingress, opts)
		return err
	case definition.KindRole:
		live, err := cs.RbacV1().Roles(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Role.ResourceVersion = live.ResourceVersion
		_, err = cs.RbacV1().Roles(ns).Update(ctx, c.Role, opts)
		return err
	case definition.KindClusterRole:
		live, err := cs.RbacV1().ClusterRoles().Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.ClusterRole.ResourceVersion = live.ResourceVersion
		_, err = cs.RbacV1().ClusterRoles().Update(ctx, c.ClusterRole, opts)
		return err
	case definition.KindRoleBinding:
		live, err := cs.RbacV1().RoleBindings(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.RoleBinding.ResourceVersion = live.ResourceVersion
		_, err = cs.RbacV1().RoleBindings(ns).Update(ctx, c.RoleBinding, opts)
		return err
	case definition.KindClusterRoleBinding:
		live, err := cs.RbacV1().ClusterRoleBindings().Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.ClusterRoleBinding.ResourceVersion = live.ResourceVersion
		_, err = cs.RbacV1().ClusterRoleBindings().Update(ctx, c.ClusterRoleBinding, opts)
		return err
	case definition.KindServiceAccount:
		live, err := cs.CoreV1().ServiceAccounts(ns).Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.ServiceAccount.ResourceVersion = live.ResourceVersion
		_, err = cs.CoreV1().ServiceAccounts(ns).Update(ctx, c.ServiceAccount, opts)
		return err
	case definition.KindNamespace:
		live, err := cs.CoreV1().Namespaces().Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.Namespace.ResourceVersion = live.ResourceVersion
		_, err = cs.CoreV1().Namespaces().Update(ctx, c.Namespace, opts)
		return err
	case definition.KindPersistentVolume:
		live, err := cs.CoreV1().PersistentVolumes().Get(ctx, c.Name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		c.PersistentVolume.ResourceVersion = live.ResourceVersion
		_, err = cs.CoreV1().PersistentVolumes().Update(ctx, c.PersistentVolume, opts)
		return err
	default:
		return fmt.Errorf("kind %q has no Kubernetes object to update", c.Kind)
	}
}

// deleteObject maps a Kind to its typed clientset Delete call.
func deleteObject(ctx context.Context, cs kubernetes.Interface, c *component.Component) error {
	ns := c.EffectiveNamespace()
	opts := metav1.DeleteOptions{}

	switch c.Kind {
	case definition.KindJob:
		return cs.BatchV1().Jobs(ns).Delete(ctx, c.Name, opts)
	case definition.KindDeployment:
		return cs.AppsV1().Deployments(ns).Delete(ctx, c.Name, opts)
	case definition.KindStatefulSet:
		return cs.AppsV1().StatefulSets(ns).Delete(ctx, c.Name, opts)
	case definition.KindDaemonSet:
		return cs.AppsV1().DaemonSets(ns).Delete(ctx, c.Name, opts)
	case definition.KindService:
		return cs.CoreV1().Services(ns).Delete(ctx, c.Name, opts)
	case definition.KindConfigMap:
		return cs.CoreV1().ConfigMaps(ns).Delete(ctx, c.Name, opts)
	case definition.KindSecret:
		return cs.CoreV1().Secrets(ns).Delete(ctx, c.Name, opts)
	case definition.KindPersistentVolume:
		return cs.CoreV1().PersistentVolumes().Delete(ctx, c.Name, opts)
	case definition.KindIngress:
		return cs.NetworkingV1().Ingresses(ns).Delete(ctx, c.Name, opts)
	case definition.KindNamespace:
		return cs.CoreV1().Namespaces().Delete(ctx, c.Name, opts)
	case definition.KindRole:
		return cs.RbacV1().Roles(ns).Delete(ctx, c.Name, opts)
	case definition.KindClusterRole:
		return cs.RbacV1().ClusterRoles().Delete(ctx, c.Name, opts)
	case definition.KindRoleBinding:
		return cs.RbacV1().RoleBindings(ns).Delete(ctx, c.Name, opts)
	case definition.KindClusterRoleBinding:
		return cs.RbacV1().ClusterRoleBindings().Delete(ctx, c.Name, opts)
	case definition.KindServiceAccount:
		return cs.CoreV1().ServiceAccounts(ns).Delete(ctx, c.Name, opts)
	default:
		return fmt.Errorf("kind %q has no Kubernetes object to delete", c.Kind)
	}
}

// getObject maps a Kind to its typed clientset Get call, used by
// pkg/probe's readiness predicates.
func getObject(ctx context.Context, cs kubernetes.Interface, c *component.Component) (interface{}, error) {
	ns := c.EffectiveNamespace()
	opts := metav1.GetOptions{}

	switch c.Kind {
	case definition.KindJob:
		return cs.BatchV1().Jobs(ns).Get(ctx, c.Name, opts)
	case definition.KindDeployment:
		return cs.AppsV1().Deployments(ns).Get(ctx, c.Name, opts)
	case definition.KindStatefulSet:
		return cs.AppsV1().StatefulSets(ns).Get(ctx, c.Name, opts)
	case definition.KindDaemonSet:
		return cs.AppsV1().DaemonSets(ns).Get(ctx, c.Name, opts)
	case definition.KindService:
		return cs.CoreV1().Services(ns).Get(ctx, c.Name, opts)
	case definition.KindConfigMap:
		return cs.CoreV1().ConfigMaps(ns).Get(ctx, c.Name, opts)
	case definition.KindSecret:
		return cs.CoreV1().Secrets(ns).Get(ctx, c.Name, opts)
	case definition.KindPersistentVolume:
		return cs.CoreV1().PersistentVolumes().Get(ctx, c.Name, opts)
	case definition.KindIngress:
		return cs.NetworkingV1().Ingresses(ns).Get(ctx, c.Name, opts)
	case definition.KindNamespace:
		return cs.CoreV1().Namespaces().Get(ctx, c.Name, opts)
	case definition.KindRole:
		return cs.RbacV1().Roles(ns).Get(ctx, c.Name, opts)
	case definition.KindClusterRole:
		return cs.RbacV1().ClusterRoles().Get(ctx, c.Name, opts)
	case definition.KindRoleBinding:
		return cs.RbacV1().RoleBindings(ns).Get(ctx, c.Name, opts)
	case definition.KindClusterRoleBinding:
		return cs.RbacV1().ClusterRoleBindings().Get(ctx, c.Name, opts)
	case definition.KindServiceAccount:
		return cs.CoreV1().ServiceAccounts(ns).Get(ctx, c.Name, opts)
	default:
		return nil, fmt.Errorf("kind %q has no Kubernetes object to fetch", c.Kind)
	}
}

// scaleDown patches spec.replicas, used by the StatefulSet remove
// expansion's first task (spec.md §4.5).
func scaleDown(ctx context.Context, cs kubernetes.Interface, c *component.Component, replicas int32) error {
	if c.Kind != definition.KindStatefulSet {
		return fmt.Errorf("scale down only applies to StatefulSet, got %q", c.Kind)
	}
	ns := c.EffectiveNamespace()
	live, err := cs.AppsV1().StatefulSets(ns).Get(ctx, c.Name, metav1.GetOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	live.Spec.Replicas = &replicas
	_, err = cs.AppsV1().StatefulSets(ns).Update(ctx, live, metav1.UpdateOptions{})
	return err
}

// deletePVCsForStatefulSet deletes every PVC selected by the
// StatefulSet's pod-template label selector (spec.md §4.5's third
// remove-expansion step).
func deletePVCsForStatefulSet(ctx context.Context, cs kubernetes.Interface, c *component.Component) error {
	if c.Kind != definition.KindStatefulSet {
		return fmt.Errorf("delete PVCs only applies to StatefulSet, got %q", c.Kind)
	}
	ns := c.EffectiveNamespace()

	selector := ""
	if c.StatefulSet != nil && c.StatefulSet.Spec.Selector != nil {
		for k, v := range c.StatefulSet.Spec.Selector.MatchLabels {
			if selector != "" {
				selector += ","
			}
			selector += fmt.Sprintf("%s=%s", k, v)
		}
	}

	pvcs, err := cs.CoreV1().PersistentVolumeClaims(ns).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return err
	}
	for _, pvc := range pvcs.Items {
		if err := cs.CoreV1().PersistentVolumeClaims(ns).Delete(ctx, pvc.Name, metav1.DeleteOptions{}); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}
