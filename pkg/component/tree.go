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
	"fmt"

	"github.com/jgaa/k8dep/pkg/definition"
)

// BuildOptions controls tree construction: variant selection and the three
// CLI name filters (spec.md §4.1 / §6).
type BuildOptions struct {
	Variants           []definition.VariantSelector
	Filters            definition.Filters
	AutoManageNamespace bool
	EffectiveNamespace  string
}

// Build applies variant selection to root, then walks it constructing one
// typed Component per enabled, filtered node (spec.md §4.2's "Component
// tree construction"). Disabled or filtered nodes, and their whole subtree,
// are omitted — matching the original's populate(), which never descends
// into a pruned branch.
func Build(root *definition.Node, opts BuildOptions) (*Component, error) {
	if err := definition.SelectVariants(root, opts.Variants); err != nil {
		return nil, err
	}

	c, err := populate(root, nil, opts)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("root component %q was filtered out", root.Name)
	}

	if opts.AutoManageNamespace {
		addNamespaceChild(c, opts.EffectiveNamespace)
	}

	initTree(c)

	if err := checkUniqueNames(c); err != nil {
		return nil, err
	}

	return c, nil
}

// populate recursively instantiates def and its enabled, filtered children,
// mirroring Component::populate in the original.
func populate(def *definition.Node, parent *Component, opts BuildOptions) (*Component, error) {
	if !opts.Filters.Admits(def.Name, def.IsEnabled()) {
		return nil, nil
	}

	behaviour, err := behaviourFor(def.Kind)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", def.Name, err)
	}

	c := &Component{
		Name:           def.Name,
		Kind:           def.Kind,
		Variant:        def.Variant,
		Labels:         cloneArgs(def.Labels),
		Args:           cloneArgs(def.Args),
		DefaultArgs:    cloneArgs(def.DefaultArgs),
		Depends:        append([]string(nil), def.Depends...),
		ParentRelation: def.ParentRelation,
		Storage:        def.Storage,

		PodSecurityContext: def.PodSecurityContext,
		SecurityContext:    def.SecurityContext,
		StartupProbe:       def.StartupProbe,
		LivenessProbe:      def.LivenessProbe,
		ReadinessProbe:     def.ReadinessProbe,

		Parent: parent,
		State:          StatePre,
		Behaviour:      behaviour,
	}
	if c.ParentRelation == "" {
		c.ParentRelation = definition.After
	}

	for _, childDef := range def.Children {
		child, err := populate(childDef, c, opts)
		if err != nil {
			return nil, err
		}
		if child != nil {
			c.Children = append(c.Children, child)
		}
	}

	return c, nil
}

func cloneArgs(a definition.Args) definition.Args {
	out := make(definition.Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// addNamespaceChild gives root a Namespace child sized to ns, matching
// spec.md §4.2's auto-manage-namespace rule.
func addNamespaceChild(root *Component, ns string) {
	if ns == "" {
		return
	}
	root.Walk(func(n *Component) {
		if n.Kind == definition.KindNamespace && n.Name == ns {
			ns = ""
		}
	})
	if ns == "" {
		return
	}
	b, _ := behaviourFor(definition.KindNamespace)
	child := &Component{
		Name:           ns,
		Kind:           definition.KindNamespace,
		Args:           definition.Args{},
		Labels:         definition.Args{},
		ParentRelation: definition.Before,
		State:          StatePre,
		Parent:         root,
		Behaviour:      b,
	}
	root.Children = append(root.Children, child)
}

// initTree implements the root's init(): it stamps k8dep-deployment and
// k8dep-component (from the nearest App ancestor) onto every component; no
// k8dep-cluster label is set. It then resolves effective args top-down so children can
// read ancestor defaultArgs (spec.md §4.2).
func initTree(root *Component) {
	deploymentLabel := root.Name
	root.Walk(func(n *Component) {
		if n.Labels == nil {
			n.Labels = definition.Args{}
		}
		n.Labels["k8dep-deployment"] = deploymentLabel
		if app := n.AppAncestor(); app != nil {
			n.Labels["k8dep-component"] = app.Name
		}
		n.ResolveArgs()
	})
}

// checkUniqueNames enforces invariant 1 of spec.md §3: component names must
// be unique within a cluster among enabled components. Since Build only
// instantiates enabled/filtered nodes, every node present in the tree
// counts.
func checkUniqueNames(root *Component) error {
	seen := map[string]bool{}
	var dupErr error
	root.Walk(func(n *Component) {
		if dupErr != nil {
			return
		}
		if seen[n.Name] {
			dupErr = fmt.Errorf("more than one component with name %q is active; names must be unique", n.Name)
			return
		}
		seen[n.Name] = true
	})
	return dupErr
}

// PrepareAll runs PrepareDeploy over every component in the tree, pre-order,
// so that implicit children synthesised by a parent are visited too. The
// Service and PersistentVolume children a synthesis call appends are
// already prepared by that call, so this walk prepares them a second time;
// their PrepareDeploy gives the same result when run twice.
func PrepareAll(root *Component) error {
	var walkErr error
	root.Walk(func(n *Component) {
		if walkErr != nil {
			return
		}
		if err := n.Behaviour.PrepareDeploy(n); err != nil {
			walkErr = fmt.Errorf("component %s: %w", n.Name, err)
		}
	})
	return walkErr
}
