// Copyright 2024 Greptime Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgaa/k8dep/pkg/cluster"
	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
	"github.com/jgaa/k8dep/pkg/logger"
)

// commonFlags is the CLI contract shared by deploy/delete/depends
// (spec.md §6): a definition file, one or more `-k kubeconfig[:var=value,...]`
// cluster declarations, global `-v key=val` variables, variant selectors,
// the three name filters, and the env-var removal list.
type commonFlags struct {
	definitionFile string

	kubeconfigs  []string
	vars         []string
	variants     []string
	include      string
	exclude      string
	enable       string
	removeEnvVar []string

	namespace           string
	autoManageNamespace bool

	dnsIPv4 []string
	dnsIPv6 []string

	timeoutSeconds int
	verbose        bool
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringArrayVarP(&f.kubeconfigs, "kubeconfig", "k", nil,
		"kubeconfig[:var=value,...] for one cluster; repeat for multiple clusters, in clusterN order")
	cmd.Flags().StringArrayVarP(&f.vars, "var", "v", nil, "key=value, applied to every cluster unless overridden by a per-cluster value")
	cmd.Flags().StringArrayVar(&f.variants, "variant", nil, "name-regex=variant, repeatable")
	cmd.Flags().StringVar(&f.include, "include", "", "regex; only matching component names survive")
	cmd.Flags().StringVar(&f.exclude, "exclude", "", "regex; matching component names are dropped")
	cmd.Flags().StringVar(&f.enable, "enable", "", "regex; force-enable matching disabled components")
	cmd.Flags().StringArrayVar(&f.removeEnvVar, "remove-env-var", nil, "drop this env var name from every container, repeatable")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "default", "effective namespace for components that don't set one")
	cmd.Flags().BoolVar(&f.autoManageNamespace, "auto-manage-namespace", true, "give the root a Namespace child sized to --namespace")
	cmd.Flags().StringArrayVar(&f.dnsIPv4, "dns-ipv4", nil, "A-record address the cluster is reachable at, repeatable")
	cmd.Flags().StringArrayVar(&f.dnsIPv6, "dns-ipv6", nil, "AAAA-record address the cluster is reachable at, repeatable")
	cmd.Flags().IntVar(&f.timeoutSeconds, "timeout", 0, "abort if the run hasn't finished within this many seconds; 0 means no timeout")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "print a final component status table")
}

// clusterSpec is one parsed `-k` declaration.
type clusterSpec struct {
	kubeconfigPath string
	vars           map[string]string
}

// parseClusterSpecs turns the raw `-k` strings plus global `-v` declarations
// into one clusterSpec per cluster, in command-line order (the order
// Coordinator.ClusterRef uses to resolve `clusterN:name`).
func parseClusterSpecs(f *commonFlags) ([]clusterSpec, error) {
	if len(f.kubeconfigs) == 0 {
		return nil, fmt.Errorf("at least one -k kubeconfig must be given")
	}

	globalVars, err := parseVarDeclarations(f.vars)
	if err != nil {
		return nil, err
	}

	specs := make([]clusterSpec, 0, len(f.kubeconfigs))
	for _, raw := range f.kubeconfigs {
		path, rest, _ := strings.Cut(raw, ":")
		if path == "" {
			return nil, fmt.Errorf("invalid -k declaration %q: missing kubeconfig path", raw)
		}

		vars := make(map[string]string, len(globalVars))
		for k, v := range globalVars {
			vars[k] = v
		}
		if rest != "" {
			overrides, err := parseVarDeclarations(strings.Split(rest, ","))
			if err != nil {
				return nil, fmt.Errorf("invalid -k declaration %q: %w", raw, err)
			}
			for k, v := range overrides {
				vars[k] = v
			}
		}

		specs = append(specs, clusterSpec{kubeconfigPath: path, vars: vars})
	}
	return specs, nil
}

func parseVarDeclarations(raw []string) (map[string]string, error) {
	vars := map[string]string{}
	for _, decl := range raw {
		if decl == "" {
			continue
		}
		k, v, ok := strings.Cut(decl, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable declaration %q: want key=value", decl)
		}
		vars[k] = v
	}
	return vars, nil
}

// parseVariantSelectors turns repeated `name-regex=variant` strings into
// definition.VariantSelector values (spec.md §6's `--variant regex=name`).
func parseVariantSelectors(raw []string) ([]definition.VariantSelector, error) {
	var out []definition.VariantSelector
	for _, decl := range raw {
		filter, variant, ok := strings.Cut(decl, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --variant %q: want name-regex=variant", decl)
		}
		out = append(out, definition.VariantSelector{NameFilter: filter, Variant: variant})
	}
	return out, nil
}

// buildClusters loads the definition file once per cluster (each cluster's
// vars may differ), builds and prepares its component tree, and returns one
// cluster.Cluster per -k declaration, in order. It does not yet resolve
// dependencies or build task graphs — those need every cluster's Root
// indexed by a Coordinator first (spec.md §4.7).
func buildClusters(f *commonFlags) ([]*cluster.Cluster, error) {
	specs, err := parseClusterSpecs(f)
	if err != nil {
		return nil, err
	}

	variants, err := parseVariantSelectors(f.variants)
	if err != nil {
		return nil, err
	}
	filters, err := definition.CompileFilters(f.enable, f.include, f.exclude)
	if err != nil {
		return nil, err
	}
	component.RemoveEnvVars = f.removeEnvVar

	clusters := make([]*cluster.Cluster, 0, len(specs))
	for i, spec := range specs {
		name := fmt.Sprintf("cluster%d", i+1)
		if n, ok := spec.vars["clusterId"]; ok && n != "" {
			name = n
		} else {
			spec.vars["clusterId"] = name
		}
		if _, ok := spec.vars["namespace"]; !ok {
			spec.vars["namespace"] = f.namespace
		}

		root, err := definition.Load(f.definitionFile, spec.vars)
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", name, err)
		}

		tree, err := component.Build(root, component.BuildOptions{
			Variants:            variants,
			Filters:             filters,
			AutoManageNamespace: f.autoManageNamespace,
			EffectiveNamespace:  spec.vars["namespace"],
		})
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", name, err)
		}
		if err := component.PrepareAll(tree); err != nil {
			return nil, fmt.Errorf("cluster %s: %w", name, err)
		}

		cl := cluster.New(name, spec.kubeconfigPath, spec.vars)
		cl.SetRoot(tree)
		clusters = append(clusters, cl)
	}

	return clusters, nil
}

// componentCount reports the total enabled component count in root's tree,
// used for a quick sanity log line before a run starts.
func componentCount(root *component.Component) int {
	n := 0
	root.Walk(func(*component.Component) { n++ })
	return n
}

func logClusterSummary(l logger.Logger, clusters []*cluster.Cluster) {
	for _, cl := range clusters {
		l.V(0).Infof("cluster %s: %d components, kubeconfig %s",
			logger.Bold(cl.Name), componentCount(cl.Root), cl.KubeconfigPath)
	}
}
