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
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jgaa/k8dep/pkg/cluster"
	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/graph"
	"github.com/jgaa/k8dep/pkg/logger"
	"github.com/jgaa/k8dep/pkg/task"
)

// NewDependsCommand implements spec.md §6's `depends` subcommand: resolve
// every cluster's dependency graph and task graph without touching the
// API server, print a summary table, and optionally dump DOT files
// (SPEC_FULL.md's "optional DOT file" concretization).
func NewDependsCommand(l logger.Logger) *cobra.Command {
	f := &commonFlags{}
	var dotDir string
	var mode string

	cmd := &cobra.Command{
		Use:   "depends <definition-file>",
		Short: "Print (and optionally export) the dependency and task graphs without deploying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.definitionFile = args[0]

			taskMode := task.ModeCreate
			if mode == "remove" {
				taskMode = task.ModeRemove
			}

			clusters, err := buildClusters(f)
			if err != nil {
				return err
			}
			co := cluster.NewCoordinator(clusters...)

			graphs := make(map[*cluster.Cluster]*task.Graph, len(clusters))
			for _, cl := range clusters {
				if err := task.ResolveDependencies(cl.Root, taskMode, co.ClusterRef()); err != nil {
					return fmt.Errorf("cluster %s: %w", cl.Name, err)
				}
				g, err := task.BuildTasks(cl.Root, taskMode, nil, nil, nil)
				if err != nil {
					return fmt.Errorf("cluster %s: %w", cl.Name, err)
				}
				graphs[cl] = g
			}
			if err := co.WireClusterDependencies(); err != nil {
				return err
			}

			printDependencyTable(os.Stdout, clusters, graphs)

			if dotDir != "" {
				if err := os.MkdirAll(dotDir, 0o755); err != nil {
					return fmt.Errorf("create dot dir: %w", err)
				}
				for _, cl := range clusters {
					if err := writeDotFile(dotDir, cl.Name+".components.dot", graph.ComponentTree(cl.Root)); err != nil {
						return err
					}
					if err := writeDotFile(dotDir, cl.Name+".tasks.dot", graph.TaskGraph(graphs[cl])); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&dotDir, "dot-dir", "", "write <cluster>.components.dot and <cluster>.tasks.dot here")
	cmd.Flags().StringVar(&mode, "mode", "create", "\"create\" or \"remove\", selects which task chains are built")

	return cmd
}

func writeDotFile(dir, name, contents string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// printDependencyTable renders one row per component: its immediate
// same-cluster/cross-cluster dependency count and its task count, the
// `depends` command's at-a-glance summary.
func printDependencyTable(w *os.File, clusters []*cluster.Cluster, graphs map[*cluster.Cluster]*task.Graph) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	table.SetHeader([]string{"Cluster", "Component", "Kind", "Depends On", "Cluster Deps", "Tasks"})
	for _, cl := range clusters {
		g := graphs[cl]
		cl.Root.Walk(func(c *component.Component) {
			taskCount := 0
			for _, t := range g.Tasks {
				if t.Component == c {
					taskCount++
				}
			}
			table.Append([]string{
				cl.Name,
				c.Name,
				string(c.Kind),
				fmt.Sprintf("%d", len(c.DependsOn)),
				fmt.Sprintf("%d", len(c.ClusterDependsOn)),
				fmt.Sprintf("%d", taskCount),
			})
		})
	}
	table.Render()
}
