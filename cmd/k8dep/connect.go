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
	"k8s.io/client-go/tools/clientcmd"

	"github.com/jgaa/k8dep/pkg/logger"
	"github.com/jgaa/k8dep/pkg/portforward"
)

// NewConnectCommand implements the supplemented `connect` subcommand
// (SPEC_FULL.md §C.1): open a port-forward session to a pod reachable
// through one cluster's kubeconfig, so an operator can reach a just-deployed
// component without a separate kubectl invocation.
func NewConnectCommand(l logger.Logger) *cobra.Command {
	var (
		kubeconfigPath string
		namespace      string
	)

	cmd := &cobra.Command{
		Use:   "connect <pod-name> <local:remote>...",
		Short: "Port-forward to a pod in a deployed cluster",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pod := args[0]
			ports := args[1:]

			config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
			if err != nil {
				return fmt.Errorf("load kubeconfig: %w", err)
			}

			fwd := portforward.New(config)
			session, err := fwd.Start(cmd.Context(), namespace, pod, ports, os.Stdout, os.Stderr)
			if err != nil {
				return err
			}

			<-session.Ready()
			l.V(0).Infof("forwarding to %s/%s: %v", namespace, pod, ports)

			return session.Wait()
		},
	}

	cmd.Flags().StringVarP(&kubeconfigPath, "kubeconfig", "k", "", "kubeconfig for the cluster the pod lives in")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "namespace of the pod")

	return cmd
}
