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
	"github.com/spf13/cobra"

	"github.com/jgaa/k8dep/pkg/logger"
	"github.com/jgaa/k8dep/pkg/task"
)

// NewDeleteCommand implements spec.md §6's `delete` subcommand: tear down
// every component in REMOVE mode (reverse dependency order) across every
// `-k` cluster.
func NewDeleteCommand(l logger.Logger) *cobra.Command {
	f := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "delete <definition-file>",
		Short: "Remove a tree of components from one or more clusters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.definitionFile = args[0]
			return runAcrossClusters(cmd.Context(), l, f, task.ModeRemove)
		},
	}

	addCommonFlags(cmd, f)
	return cmd
}
