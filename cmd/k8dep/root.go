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

	"github.com/spf13/cobra"
	"sigs.k8s.io/kind/pkg/log"

	"github.com/jgaa/k8dep/pkg/logger"
	internalversion "github.com/jgaa/k8dep/pkg/version"
)

// NewRootCommand wires the four spec.md §6 subcommands behind one shared
// logger. `-v` is already spoken for by the per-cluster variable
// declarations (`-v key=val`), so verbosity here is long-flag only
// (`--verbosity`), with no short alias.
func NewRootCommand() *cobra.Command {
	var verbosity int32

	l := logger.New(os.Stdout, log.Level(verbosity), logger.WithColored())

	cmd := &cobra.Command{
		Use:          "k8dep",
		Short:        "k8dep deploys and removes a tree of Kubernetes objects across one or more clusters.",
		Version:      internalversion.Get().String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			type verboser interface {
				SetVerbosity(log.Level)
			}
			if v, ok := l.(verboser); ok {
				v.SetVerbosity(log.Level(verbosity))
				return nil
			}
			return fmt.Errorf("logger does not implement SetVerbosity")
		},
	}

	cmd.PersistentFlags().Int32Var(&verbosity, "verbosity", 0, "info log verbosity, higher value produces more output")

	cmd.AddCommand(NewDeployCommand(l))
	cmd.AddCommand(NewDeleteCommand(l))
	cmd.AddCommand(NewDependsCommand(l))
	cmd.AddCommand(NewConnectCommand(l))

	return cmd
}
