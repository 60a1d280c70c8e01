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

// Package probe drives the readiness-polling half of spec.md §4.6: once a
// task's effect has been applied, a task with startProbeAfterApply set
// enters WAITING and is handed to Poll, which GETs the live object on a
// fixed interval and asks the component's kind-specific behaviour whether
// it has reached its intended steady state. Grounded on the original's
// sendProbe (original_source/include/k8deployer/probe.h), which dispatches
// on the decoded object's static type to decide DONE/INIT/FAILED; here the
// dispatch is component.Behaviour.Probe instead of a template parameter.
package probe

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/jgaa/k8dep/pkg/component"
)

// Interval is the fixed poll period mandated by spec.md §4.6.
const Interval = 2 * time.Second

// Getter fetches the live object backing a component, returning (nil, nil)
// when the object does not yet exist (404). pkg/kube.Client implements
// this; probe depends on it only through this interface so it never
// imports pkg/kube, matching the Applier/HTTPExecutor pattern in pkg/task.
type Getter interface {
	Get(ctx context.Context, c *component.Component) (interface{}, error)
}

// Outcome is the terminal verdict of a poll loop.
type Outcome int

const (
	// OutcomeDone means the component's object reached its steady state.
	OutcomeDone Outcome = iota
	// OutcomeFailed means the kind-specific predicate reported failure.
	OutcomeFailed
	// OutcomeRemoved means the object is gone, which is the success
	// condition for a REMOVE-mode probe.
	OutcomeRemoved
)

// Poll blocks, polling Getter.Get for c's live object every Interval,
// until c.Behaviour.Probe reports a terminal verdict or ctx is cancelled.
// removeMode selects the REMOVE-mode reading of DONT_EXIST/INIT (spec.md
// §4.6: "keep polling (on CREATE) or DONE (on REMOVE)").
func Poll(ctx context.Context, g Getter, c *component.Component, removeMode bool) (Outcome, error) {
	return pollWithInterval(ctx, g, c, removeMode, Interval)
}

// removeProber is implemented by behaviours whose remove-mode readiness
// reading differs from their deploy-mode one: statefulSetBehaviour.
// ProbeRemove reads ready replicas reaching 0 rather than reaching spec's
// desired count, and daemonSetBehaviour.ProbeRemove reads plain object
// presence rather than NumberReady, since a DaemonSet's pods commonly stay
// NumberReady>0 for a moment after the object itself is deleted. Asserted
// for rather than added to component.Behaviour so kinds without a
// remove-specific reading need not implement it.
type removeProber interface {
	ProbeRemove(obj interface{}) component.ProbeResult
}

// probeResult dispatches to the remove-specific predicate when removeMode
// is set and the behaviour implements one, else the normal predicate.
func probeResult(c *component.Component, obj interface{}, removeMode bool) component.ProbeResult {
	if removeMode {
		if rp, ok := c.Behaviour.(removeProber); ok {
			return rp.ProbeRemove(obj)
		}
	}
	return c.Behaviour.Probe(c, obj)
}

// pollWithInterval is Poll with an overridable period, so tests don't pay
// the real 2-second cadence.
func pollWithInterval(ctx context.Context, g Getter, c *component.Component, removeMode bool, interval time.Duration) (Outcome, error) {
	var outcome Outcome

	err := wait.PollUntilContextCancel(ctx, interval, true, func(ctx context.Context) (bool, error) {
		obj, err := g.Get(ctx, c)
		if err != nil {
			return false, fmt.Errorf("probe %s %s: %w", c.Kind, c.Name, err)
		}

		if obj == nil {
			if removeMode {
				outcome = OutcomeRemoved
				return true, nil
			}
			return false, nil
		}

		switch probeResult(c, obj, removeMode) {
		case component.ProbeDone:
			outcome = OutcomeDone
			return true, nil
		case component.ProbeFailed:
			outcome = OutcomeFailed
			return true, nil
		case component.ProbeDoesNotExist:
			if removeMode {
				outcome = OutcomeRemoved
				return true, nil
			}
			return false, nil
		case component.ProbePending:
			return false, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}
