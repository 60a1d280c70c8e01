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

// Package kube is the K8s object adapter (spec.md §4.6/§6): it encodes
// and decodes the object embedded in each component.Component and talks
// to the API server on its behalf. It implements task.Applier and the
// GET half of the readiness prober (pkg/probe), so pkg/task and pkg/probe
// depend on it only through those interfaces.
package kube

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/jgaa/k8dep/pkg/component"
)

// clientHeader is sent on every request, grounded on the original's
// `.Header("X-Client", "k8deployer")` calls throughout Cluster.cpp.
const clientHeader = "k8dep"

// Client wraps a client-go clientset; every call is a single HTTP round
// trip, leaving the orchestrator's cooperative loop (pkg/orchestrator) in
// charge of concurrency and retries.
type Client struct {
	clientset kubernetes.Interface
}

// NewClient loads kubeconfig (falling back to ~/.kube/config) and builds
// a Client whose transport stamps the X-Client header on every request
// (spec.md §4.6 "Apply semantics").
func NewClient(kubeconfigPath string) (*Client, error) {
	if kubeconfigPath == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfigPath = filepath.Join(home, ".kube", "config")
		} else {
			return nil, fmt.Errorf("kubeconfig not found and no path given")
		}
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	config.WrapTransport = func(rt http.RoundTripper) http.RoundTripper {
		return xClientRoundTripper{next: rt}
	}

	return NewClientForConfig(config)
}

// NewClientForConfig builds a Client from an already-resolved rest.Config,
// letting tests and in-cluster callers skip kubeconfig file lookup.
func NewClientForConfig(config *rest.Config) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}
	return &Client{clientset: clientset}, nil
}

// NewClientForInterface wraps an already-constructed clientset (used by
// tests with k8s.io/client-go/kubernetes/fake).
func NewClientForInterface(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

type xClientRoundTripper struct {
	next http.RoundTripper
}

func (r xClientRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Client", clientHeader)
	return r.next.RoundTrip(req)
}

// Apply implements task.Applier: POST (Create) the component's object;
// when dontFailIfAlreadyExists is set and the server reports
// AlreadyExists, fall back to an Update against the existing object
// (spec.md §4.6: "A 409/already-exists condition is re-attempted as
// PATCH against the object URL when dontFailIfAlreadyExists is set").
func (c *Client) Apply(ctx context.Context, comp *component.Component, dontFailIfAlreadyExists bool) error {
	err := createObject(ctx, c.clientset, comp)
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("create %s %s: %w", comp.Kind, comp.Name, err)
	}
	if !dontFailIfAlreadyExists {
		return fmt.Errorf("create %s %s: %w", comp.Kind, comp.Name, err)
	}
	if err := updateObject(ctx, c.clientset, comp); err != nil {
		return fmt.Errorf("patch %s %s after already-exists: %w", comp.Kind, comp.Name, err)
	}
	return nil
}

// Delete implements task.Applier: DELETE the component's object,
// treating 404 as success.
func (c *Client) Delete(ctx context.Context, comp *component.Component) error {
	err := deleteObject(ctx, c.clientset, comp)
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete %s %s: %w", comp.Kind, comp.Name, err)
	}
	return nil
}

// ScaleDown implements task.Applier for the StatefulSet remove expansion
// (spec.md §4.5): PATCH spec.replicas on the live object.
func (c *Client) ScaleDown(ctx context.Context, comp *component.Component, replicas int32) error {
	return scaleDown(ctx, c.clientset, comp, replicas)
}

// DeletePVCs implements task.Applier for the StatefulSet remove
// expansion's third step: delete every PVC matching the StatefulSet's
// selector label.
func (c *Client) DeletePVCs(ctx context.Context, comp *component.Component) error {
	return deletePVCsForStatefulSet(ctx, c.clientset, comp)
}

// Get fetches the live object for comp, for use by pkg/probe's
// kind-specific readiness predicates. Returns (nil, nil) on 404.
func (c *Client) Get(ctx context.Context, comp *component.Component) (interface{}, error) {
	obj, err := getObject(ctx, c.clientset, comp)
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	return obj, err
}
