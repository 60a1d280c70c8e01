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

// Package definition holds the definition tree consumed by the core: the
// loader (YAML parsed straight into Node, no JSON step), the macro/variable
// expansion grammar, variant selection, and the effective-argument merge
// law.
package definition

import corev1 "k8s.io/api/core/v1"

// ParentRelation is the temporal constraint of a child relative to its
// parent component.
type ParentRelation string

const (
	Before      ParentRelation = "BEFORE"
	After       ParentRelation = "AFTER"
	Independent ParentRelation = "INDEPENDENT"
)

// Kind is the closed set of object kinds a Node may declare.
type Kind string

const (
	KindJob                Kind = "Job"
	KindDeployment         Kind = "Deployment"
	KindStatefulSet        Kind = "StatefulSet"
	KindDaemonSet          Kind = "DaemonSet"
	KindService            Kind = "Service"
	KindConfigMap          Kind = "ConfigMap"
	KindSecret             Kind = "Secret"
	KindPersistentVolume   Kind = "PersistentVolume"
	KindIngress            Kind = "Ingress"
	KindNamespace          Kind = "Namespace"
	KindRole               Kind = "Role"
	KindClusterRole        Kind = "ClusterRole"
	KindRoleBinding        Kind = "RoleBinding"
	KindClusterRoleBinding Kind = "ClusterRoleBinding"
	KindServiceAccount     Kind = "ServiceAccount"
	KindHttpRequest        Kind = "HttpRequest"
	KindApp                Kind = "App"
)

// Args is a K→V mapping. Order is never significant.
type Args map[string]string

// StorageDef mirrors the original's StorageDef: a PVC-backed volume mount,
// optionally chown/chmod'd by an init container.
type StorageDef struct {
	Name         string `yaml:"name"`
	MountPath    string `yaml:"mountPath"`
	Capacity     string `yaml:"capacity"`
	CreateVolume bool   `yaml:"createVolume"`
	Backend      string `yaml:"backend"` // "hostPath" | "nfs"

	ChownUser  string `yaml:"chownUser"`
	ChownGroup string `yaml:"chownGroup"`
	ChmodMode  string `yaml:"chmodMode"`

	// Backend-specific parameters, e.g. NFS server/path or hostPath base dir.
	Params Args `yaml:"params"`
}

// Node is one entry of the definition tree. Load parses it straight from
// YAML, and ExpandTree expands both its ${name[,default]} variables and
// its name(arg) function calls (see Expand) in this package.
type Node struct {
	Name    string `yaml:"name"`
	Kind    Kind   `yaml:"kind"`
	Variant string `yaml:"variant"`
	Enabled *bool  `yaml:"enabled"` // nil means "true"

	Labels      Args `yaml:"labels"`
	Args        Args `yaml:"args"`
	DefaultArgs Args `yaml:"defaultArgs"`
	Depends     []string `yaml:"depends"`

	ParentRelation ParentRelation `yaml:"parentRelation"`

	Storage []StorageDef `yaml:"storage"`

	// Set on the pod template's spec if defined on a pod-bearing component.
	PodSecurityContext *corev1.PodSecurityContext `yaml:"podSpecSecurityContext"`

	// Applied to the container k8dep synthesises for pod-bearing components.
	SecurityContext *corev1.SecurityContext `yaml:"podSecurityContext"`
	StartupProbe    *corev1.Probe           `yaml:"startupProbe"`
	LivenessProbe   *corev1.Probe           `yaml:"livenessProbe"`
	ReadinessProbe  *corev1.Probe           `yaml:"readinessProbe"`

	Children []*Node `yaml:"children"`
}

// IsEnabled returns the effective enabled flag, defaulting to true.
func (n *Node) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// SetEnabled mutates the enabled flag in place, matching the original's
// direct field writes during variant resolution.
func (n *Node) SetEnabled(v bool) {
	n.Enabled = &v
}

// Walk visits n and every descendant, pre-order, mirroring the original's
// walk_tree helper used during variant population.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
