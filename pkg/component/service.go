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
	"k8s.io/apimachinery/pkg/util/intstr"
)

type serviceBehaviour struct{}

// PrepareDeploy implements the Service case of spec.md §4.3: selectors and
// ports are pulled from the parent pod-bearing component; for each
// container port matched by the parsed port spec a ServicePort is added,
// and spec.type becomes NodePort whenever a nodePort is specified and no
// explicit type overrides (the "newer" rule per SPEC_FULL.md's Open
// Question decision).
func (serviceBehaviour) PrepareDeploy(c *Component) error {
	if c.Service == nil {
		c.Service = &corev1.Service{}
	}

	meta := &c.Service.ObjectMeta
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Namespace == "" {
		meta.Namespace = c.EffectiveNamespace()
	}
	if meta.Labels == nil {
		meta.Labels = map[string]string{}
	}
	for k, v := range c.Labels {
		meta.Labels[k] = v
	}

	parent := c.Parent
	if parent == nil || !parent.IsPodBearing() {
		// A Service may also stand alone (no pod-bearing parent); in that
		// case its selector/ports must be declared directly via its own args.
		return c.preparePortsFromOwnArgs()
	}

	c.Service.Spec.Selector = parent.selectorLabel()
	c.Service.Spec.Ports = nil

	ports, err := ParsePorts(parent.ArgOrDefault("port", ""))
	if err != nil {
		return err
	}

	explicitType, hasExplicitType := c.Arg("service.type")
	usesNodePort := false

	for _, p := range ports {
		sp := corev1.ServicePort{
			Name:       p.GetName(),
			Port:       int32(p.Port),
			TargetPort: intstr.FromInt32(int32(p.Port)),
			Protocol:   corev1.Protocol(p.Protocol),
		}
		if p.NodePort != nil {
			sp.NodePort = *p.NodePort
			usesNodePort = true
		}
		c.Service.Spec.Ports = append(c.Service.Spec.Ports, sp)
	}

	if v, ok := c.Arg("service.nodePort"); ok && v != "" {
		usesNodePort = true
	}

	switch {
	case hasExplicitType && explicitType != "":
		c.Service.Spec.Type = corev1.ServiceType(explicitType)
	case usesNodePort:
		c.Service.Spec.Type = corev1.ServiceTypeNodePort
	}

	return nil
}

// preparePortsFromOwnArgs handles a standalone Service (no pod-bearing
// parent), reading its port declarations from its own args.
func (c *Component) preparePortsFromOwnArgs() error {
	ports, err := ParsePorts(c.ArgOrDefault("port", ""))
	if err != nil {
		return err
	}
	for _, p := range ports {
		c.Service.Spec.Ports = append(c.Service.Spec.Ports, corev1.ServicePort{
			Name:       p.GetName(),
			Port:       int32(p.Port),
			TargetPort: intstr.FromInt32(int32(p.Port)),
			Protocol:   corev1.Protocol(p.Protocol),
		})
	}
	return nil
}

func (serviceBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*corev1.Service); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}
