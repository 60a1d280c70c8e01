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

// Package component implements the in-memory deployment tree: typed nodes
// (one per Kubernetes kind), implicit-child synthesis, and the per-kind
// capability dispatch used by the task graph builder and readiness prober.
package component

import (
	"fmt"
	"sync"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

// State is a Component's position in the PRE→...→DONE/FAILED state machine
// (spec.md §3, invariant 4).
type State string

const (
	StatePre       State = "PRE"
	StateCreating  State = "CREATING"
	StateBlocked   State = "BLOCKED"
	StatePreTimer  State = "PRE_TIMER"
	StateRunning   State = "RUNNING"
	StatePostTimer State = "POST_TIMER"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// IsTerminal reports whether s is DONE or FAILED.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// ClusterDependency mirrors the state of a component in a different
// cluster, as established by the dependency resolver for a `clusterN:name`
// reference (spec.md §4.4).
type ClusterDependency struct {
	ClusterName   string
	ComponentName string

	mu   sync.Mutex
	done bool
}

// MarkDone is invoked by the mirroring hop on the owning cluster's runtime
// once the remote component reaches DONE.
func (c *ClusterDependency) MarkDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
}

// Done reports whether the remote component has reached DONE.
func (c *ClusterDependency) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Component is the single record standing in for the source's class
// hierarchy: a `Kind` discriminant plus a `Behaviour` capability set,
// dispatched on at construction time (spec.md §9, "Deep polymorphism").
type Component struct {
	Name           string
	Kind           definition.Kind
	Variant        string
	Labels         definition.Args
	Args           definition.Args
	DefaultArgs    definition.Args
	Depends        []string
	ParentRelation definition.ParentRelation
	Storage        []definition.StorageDef

	PodSecurityContext *corev1.PodSecurityContext
	SecurityContext    *corev1.SecurityContext
	StartupProbe       *corev1.Probe
	LivenessProbe      *corev1.Probe
	ReadinessProbe     *corev1.Probe

	Parent   *Component
	Children []*Component

	State     State
	StartTime *int64
	Elapsed   *int64

	DependsOn        []*Component
	ClusterDependsOn []*ClusterDependency

	Behaviour Behaviour

	// Object specs. Exactly one is populated per Kind, created by that
	// kind's PrepareDeploy when still nil. k8s.io/api types are used directly so the task graph
	// builder can marshal them straight onto the wire via pkg/kube.
	Job                *batchv1.Job
	Deployment         *appsv1.Deployment
	StatefulSet        *appsv1.StatefulSet
	DaemonSet          *appsv1.DaemonSet
	Service            *corev1.Service
	ConfigMap          *corev1.ConfigMap
	Secret             *corev1.Secret
	PersistentVolume   *corev1.PersistentVolume
	Ingress            *networkingv1.Ingress
	Namespace          *corev1.Namespace
	Role               *rbacv1.Role
	ClusterRole        *rbacv1.ClusterRole
	RoleBinding        *rbacv1.RoleBinding
	ClusterRoleBinding *rbacv1.ClusterRoleBinding
	ServiceAccount     *corev1.ServiceAccount
	HttpRequest        *HttpRequestSpec

	// EffectiveArgs is populated by the argument resolver before
	// prepareDeploy runs (definition.MergeArgs over Args/DefaultArgs).
	EffectiveArgs definition.Args
}

// HttpRequestSpec is the core's representation of an HttpRequest component
// (spec.md §4.3's HttpRequest case); it has no Kubernetes object spec.
type HttpRequestSpec struct {
	Method            string
	URL               string
	JSON              string
	AuthUser          string
	AuthPassword      string
	RetryCount        int
	RetryDelaySeconds int
}

// Behaviour is the per-kind capability set dispatched on Kind, per spec.md
// §9's "Deep polymorphism" design note: a single Component record plus a
// behaviour table rather than a class hierarchy.
type Behaviour interface {
	// PrepareDeploy performs the kind-specific implicit-child synthesis and
	// object-spec completion described in spec.md §4.3.
	PrepareDeploy(c *Component) error

	// Probe reports the kind-specific readiness verdict for a GET of the
	// live object (spec.md §4.6 "Kind-specific predicates").
	Probe(c *Component, obj interface{}) ProbeResult
}

// ProbeResult is the outcome of one readiness-probe poll.
type ProbeResult int

const (
	ProbePending ProbeResult = iota
	ProbeDone
	ProbeFailed
	ProbeDoesNotExist
)

// behaviourFor returns the capability set registered for kind.
func behaviourFor(kind definition.Kind) (Behaviour, error) {
	b, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown component kind %q", kind)
	}
	return b, nil
}

var registry = map[definition.Kind]Behaviour{
	definition.KindJob:                jobBehaviour{},
	definition.KindDeployment:         deploymentBehaviour{},
	definition.KindStatefulSet:        statefulSetBehaviour{},
	definition.KindDaemonSet:          daemonSetBehaviour{},
	definition.KindService:            serviceBehaviour{},
	definition.KindConfigMap:          configMapBehaviour{},
	definition.KindSecret:             secretBehaviour{},
	definition.KindPersistentVolume:   persistentVolumeBehaviour{},
	definition.KindIngress:            ingressBehaviour{},
	definition.KindNamespace:          namespaceBehaviour{},
	definition.KindRole:               roleBehaviour{},
	definition.KindClusterRole:        clusterRoleBehaviour{},
	definition.KindRoleBinding:        roleBindingBehaviour{},
	definition.KindClusterRoleBinding: clusterRoleBindingBehaviour{},
	definition.KindServiceAccount:     serviceAccountBehaviour{},
	definition.KindHttpRequest:        httpRequestBehaviour{},
	definition.KindApp:                appBehaviour{},
}

// IsPodBearing reports whether c's kind carries a pod template (Job,
// Deployment, StatefulSet, DaemonSet) and therefore goes through the
// shared container-construction path in podspec.go.
func (c *Component) IsPodBearing() bool {
	switch c.Kind {
	case definition.KindJob, definition.KindDeployment, definition.KindStatefulSet, definition.KindDaemonSet:
		return true
	default:
		return false
	}
}

// PodTemplate returns the pod template spec for pod-bearing kinds, or nil.
func (c *Component) PodTemplate() *corev1.PodTemplateSpec {
	switch c.Kind {
	case definition.KindJob:
		if c.Job != nil {
			return &c.Job.Spec.Template
		}
	case definition.KindDeployment:
		if c.Deployment != nil {
			return &c.Deployment.Spec.Template
		}
	case definition.KindStatefulSet:
		if c.StatefulSet != nil {
			return &c.StatefulSet.Spec.Template
		}
	case definition.KindDaemonSet:
		if c.DaemonSet != nil {
			return &c.DaemonSet.Spec.Template
		}
	}
	return nil
}

// OwnDefaultArgs satisfies definition.AncestorDefaults.
func (c *Component) OwnDefaultArgs() definition.Args {
	return c.DefaultArgs
}

// AncestorDefaultArgs walks from the parent to the root, nearest first,
// collecting each ancestor's DefaultArgs for definition.MergeArgs.
func (c *Component) AncestorDefaultArgs() []definition.Args {
	var out []definition.Args
	for p := c.Parent; p != nil; p = p.Parent {
		out = append(out, p.DefaultArgs)
	}
	return out
}

// ResolveArgs computes EffectiveArgs via the merge law in definition.MergeArgs.
func (c *Component) ResolveArgs() {
	c.EffectiveArgs = definition.MergeArgs(c.Args, c.AncestorDefaultArgs())
}

// Arg returns the effective argument value, or ("", false) if unset.
func (c *Component) Arg(key string) (string, bool) {
	v, ok := c.EffectiveArgs[key]
	return v, ok
}

// ArgOrDefault returns the effective argument value or def if unset/empty.
func (c *Component) ArgOrDefault(key, def string) string {
	if v, ok := c.EffectiveArgs[key]; ok && v != "" {
		return v
	}
	return def
}

// Walk visits c and every descendant, pre-order.
func (c *Component) Walk(fn func(*Component)) {
	fn(c)
	for _, ch := range c.Children {
		ch.Walk(fn)
	}
}

// Find locates the first descendant (including c) satisfying pred.
func (c *Component) Find(pred func(*Component) bool) *Component {
	var found *Component
	c.Walk(func(n *Component) {
		if found == nil && pred(n) {
			found = n
		}
	})
	return found
}

// EffectiveNamespace returns the effective namespace for c: its own "namespace" arg,
// or the nearest ancestor's, or "default".
func (c *Component) EffectiveNamespace() string {
	for n := c; n != nil; n = n.Parent {
		if v, ok := n.Arg("namespace"); ok && v != "" {
			return v
		}
	}
	return "default"
}

// AppAncestor returns the nearest ancestor (including self) of kind App, or
// nil if the component is not under one.
func (c *Component) AppAncestor() *Component {
	for n := c; n != nil; n = n.Parent {
		if n.Kind == definition.KindApp {
			return n
		}
	}
	return nil
}
