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
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jgaa/k8dep/pkg/cluster"
	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/dnsprovision"
	"github.com/jgaa/k8dep/pkg/kube"
	"github.com/jgaa/k8dep/pkg/logger"
	"github.com/jgaa/k8dep/pkg/orchestrator"
	"github.com/jgaa/k8dep/pkg/status"
	"github.com/jgaa/k8dep/pkg/task"
)

// runAcrossClusters is the body shared by deploy and delete (spec.md §6):
// build every cluster's tree, resolve same/cross-cluster dependencies,
// build each cluster's task graph, wire cross-cluster dependency
// listeners, then drive every cluster's Runner to completion concurrently
// through Coordinator.Execute. mode selects CREATE or REMOVE task chains.
func runAcrossClusters(ctx context.Context, l logger.Logger, f *commonFlags, mode task.Mode) error {
	clusters, err := buildClusters(f)
	if err != nil {
		return err
	}
	logClusterSummary(l, clusters)

	co := cluster.NewCoordinator(clusters...)

	kubeClients := make(map[*cluster.Cluster]*kube.Client, len(clusters))
	for _, cl := range clusters {
		kc, err := kube.NewClient(cl.KubeconfigPath)
		if err != nil {
			return fmt.Errorf("cluster %s: connect: %w", cl.Name, err)
		}
		kubeClients[cl] = kc
	}

	httpClient := task.NewHTTPClient()
	dns := dnsprovision.New(dnsprovision.Config{Retries: 3, RetryDelaySeconds: 5}, f.dnsIPv4, f.dnsIPv6, nil)

	graphs := make(map[*cluster.Cluster]*task.Graph, len(clusters))
	for _, cl := range clusters {
		if err := task.ResolveDependencies(cl.Root, mode, co.ClusterRef()); err != nil {
			return fmt.Errorf("cluster %s: %w", cl.Name, err)
		}
		g, err := task.BuildTasks(cl.Root, mode, kubeClients[cl], httpClient, dns)
		if err != nil {
			return fmt.Errorf("cluster %s: %w", cl.Name, err)
		}
		graphs[cl] = g
	}

	if err := co.WireClusterDependencies(); err != nil {
		return err
	}

	seq := orchestrator.NewSequencer()
	runners := make(map[*cluster.Cluster]*orchestrator.Runner, len(clusters))
	for _, cl := range clusters {
		runners[cl] = orchestrator.NewRunner(cl, graphs[cl], kubeClients[cl], seq, l)
	}

	if f.timeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(f.timeoutSeconds)*time.Second)
		defer cancel()
	}

	sp, spErr := status.NewSpinner()

	// clustersDone is only ever touched from inside co.Execute's
	// per-cluster goroutines (the Add below) and the ticker goroutine (the
	// Load in tickSpinner), both via the atomic package: a Component's own
	// State field is mutated on its owning Runner's single loop goroutine
	// (spec.md §5), so the live tally is kept to what's actually safe to
	// read cross-goroutine rather than snooping on component state.
	var clustersDone int32
	if spErr == nil {
		sp.Start(fmt.Sprintf("running %d cluster(s) in %s mode", len(clusters), mode))
		stop := tickSpinner(ctx, sp, &clustersDone, len(clusters))
		defer stop()
	}

	runErr := co.Execute(ctx, func(ctx context.Context, cl *cluster.Cluster) error {
		err := runners[cl].Run(ctx)
		atomic.AddInt32(&clustersDone, 1)
		return err
	})

	if spErr == nil {
		if runErr == nil {
			sp.Stop(true, fmt.Sprintf("%d cluster(s) reached DONE", len(clusters)))
		} else {
			sp.Stop(false, runErr.Error())
		}
	}

	if f.verbose {
		printStatusTable(os.Stdout, clusters)
	}

	if runErr != nil {
		return runErr
	}
	return nil
}

// tickSpinner updates sp's suffix with a live "N/M cluster(s) done" tally
// every 500ms until ctx is cancelled or the returned stop func is called.
func tickSpinner(ctx context.Context, sp *status.Spinner, done *int32, total int) func() {
	ticker := time.NewTicker(500 * time.Millisecond)
	stopCh := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				sp.Update(fmt.Sprintf("%d/%d cluster(s) done", atomic.LoadInt32(done), total))
			}
		}
	}()
	return func() { close(stopCh) }
}

// printStatusTable renders one row per component across every cluster in
// the borderless tablewriter layout used for cluster status listings.
func printStatusTable(w *os.File, clusters []*cluster.Cluster) {
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

	table.SetHeader([]string{"Cluster", "Component", "Kind", "State"})
	for _, cl := range clusters {
		cl.Root.Walk(func(c *component.Component) {
			table.Append([]string{cl.Name, c.Name, string(c.Kind), string(c.State)})
		})
	}
	table.Render()
}
