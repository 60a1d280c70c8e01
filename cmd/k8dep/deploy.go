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

// NewDeployCommand implements spec.md §6's `deploy` subcommand: apply
// every component in CREATE mode across every `-k` cluster, exiting
// non-zero if any cluster's root ends FAILED.
func NewDeployCommand(l logger.Logger) *cobra.Command {
	f := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "deploy <definition-file>",
		Short: "Deploy a tree of components to one or more clusters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.definitionFile = args[0]
			return runAcrossClusters(cmd.Context(), l, f, task.ModeCreate)
		},
	}

	addCommonFlags(cmd, f)
	return cmd
}
