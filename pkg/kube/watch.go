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

package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// WatchEvents streams `/api/v1/.../events?watch=true` for namespace,
// grounded on Cluster::startEventsLoop's long-running GET with an
// effectively unbounded receive timeout (spec.md §4.6 "Event watch").
// client-go's own watch.Interface already holds the connection open; the
// caller ranges over ResultChan() and must call Stop() when done (or let
// ctx cancellation close it).
func (c *Client) WatchEvents(ctx context.Context, namespace string) (watch.Interface, error) {
	return c.clientset.CoreV1().Events(namespace).Watch(ctx, metav1.ListOptions{Watch: true})
}

// MatchesComponent implements the event routing rule of spec.md §4.6:
// an event is relevant to a monitoring task when its involvedObject kind,
// name prefix, and namespace all match.
func MatchesComponent(event *corev1.Event, kind, namePrefix, namespace string) bool {
	if event == nil {
		return false
	}
	obj := event.InvolvedObject
	if obj.Kind != kind {
		return false
	}
	if namespace != "" && obj.Namespace != namespace {
		return false
	}
	return len(obj.Name) >= len(namePrefix) && obj.Name[:len(namePrefix)] == namePrefix
}
