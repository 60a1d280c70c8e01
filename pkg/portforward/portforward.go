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

// Package portforward implements the `k8dep connect` supplemented
// feature (SPEC_FULL.md §C.1): reaching a deployed pod from the
// operator's machine, the same purpose the original's PortForward.cpp
// served by shelling out to `kubectl proxy`. Here it is native: an
// SPDY-upgraded stream opened directly through client-go, grounded on
// k8s.io/client-go/tools/portforward and the equivalent wiring already
// present elsewhere in this corpus.
package portforward

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"
)

// nextID hands out small, process-unique identifiers for concurrently
// running sessions, mirroring PortForward::ProcessCtx's static nextId
// counter (used there to offset each session's local port).
var nextID int32

// Session is one running port-forward, grounded on PortForward::
// ProcessCtx: an id, the ports it carries, and a started/stopped
// lifecycle the caller can wait on.
type Session struct {
	ID        int32
	Namespace string
	Pod       string
	Ports     []string

	ready chan struct{}
	stop  chan struct{}
	errCh chan error
}

// Ready returns a channel that closes once the tunnel is accepting
// connections — the channel equivalent of PortForward::waitForStarted's
// blocking call.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Stop tears the session down. Idempotent.
func (s *Session) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// Wait blocks until the session exits (because Stop was called, the
// context was cancelled, or the remote end closed the stream) and
// returns the reason, if any.
func (s *Session) Wait() error {
	return <-s.errCh
}

// Forwarder opens SPDY-upgraded port-forward sessions against one
// cluster's API server, identified by an already-resolved rest.Config
// (the Go equivalent of PortForward's kubeconfig-file parameter).
type Forwarder struct {
	config *rest.Config
}

// New returns a Forwarder for the given rest.Config.
func New(config *rest.Config) *Forwarder {
	return &Forwarder{config: config}
}

// Start opens a new session forwarding ports (each "local:remote", the
// same grammar client-go's portforward.New expects) to namespace/pod.
// out/errOut receive the forwarder's own diagnostic lines, mirroring
// PortForward::fetchProcessOutput's stdout/stderr capture.
func (f *Forwarder) Start(ctx context.Context, namespace, pod string, ports []string, out, errOut io.Writer) (*Session, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("portforward: no ports specified for pod %s/%s", namespace, pod)
	}

	transport, upgrader, err := spdy.RoundTripperFor(f.config)
	if err != nil {
		return nil, fmt.Errorf("portforward: build SPDY transport: %w", err)
	}

	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/portforward", namespace, pod)
	hostURL, err := url.Parse(f.config.Host + path)
	if err != nil {
		return nil, fmt.Errorf("portforward: parse host URL: %w", err)
	}

	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, hostURL)

	s := &Session{
		ID:        atomic.AddInt32(&nextID, 1),
		Namespace: namespace,
		Pod:       pod,
		Ports:     append([]string(nil), ports...),
		ready:     make(chan struct{}),
		stop:      make(chan struct{}),
		errCh:     make(chan error, 1),
	}

	fw, err := portforward.NewOnAddresses(dialer, []string{"localhost"}, ports, s.stop, s.ready, out, errOut)
	if err != nil {
		return nil, fmt.Errorf("portforward: construct forwarder: %w", err)
	}

	go func() {
		err := fw.ForwardPorts()
		select {
		case <-s.ready:
		default:
			close(s.ready)
		}
		s.errCh <- err
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stop:
		}
	}()

	return s, nil
}
