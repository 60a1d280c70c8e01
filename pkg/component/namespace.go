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

package component

import (
	corev1 "k8s.io/api/core/v1"
)

type namespaceBehaviour struct{}

func (namespaceBehaviour) PrepareDeploy(c *Component) error {
	if c.Namespace == nil {
		c.Namespace = &corev1.Namespace{}
	}
	if c.Namespace.ObjectMeta.Name == "" {
		c.Namespace.ObjectMeta.Name = c.Name
	}
	return nil
}

func (namespaceBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	ns, ok := obj.(*corev1.Namespace)
	if !ok {
		return ProbeDoesNotExist
	}
	if ns.Status.Phase == corev1.NamespaceActive {
		return ProbeDone
	}
	return ProbePending
}
