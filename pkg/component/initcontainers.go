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
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

// SkipDependencyInitContainers disables the nslookup-wait init container
// synthesis below, mirroring the original's
// Engine::config().skipDependencyInitContainers. No CLI flag sets it.
var SkipDependencyInitContainers bool

// BuildInitContainers runs once per component, deferred until first task
// execution (spec.md §4.3's "Init-containers (deferred to first task
// execution)" case): it resolves each name in Depends to a Service (direct,
// or the Service child of a pod-bearing dependency) and inserts a busybox
// wait container, then adds chown/chmod init containers for any storage
// entry that requests them.
func (c *Component) BuildInitContainers(root *Component) {
	podTemplate := c.PodTemplate()
	if podTemplate == nil {
		return
	}

	for _, depName := range c.Depends {
		target := findServiceTarget(root, depName)
		if target == nil {
			continue
		}

		if SkipDependencyInitContainers {
			continue
		}

		init := corev1.Container{
			Name:  fmt.Sprintf("init-%s-%s", c.Name, target.Name),
			Image: "busybox",
			Command: []string{
				"sh", "-c",
				fmt.Sprintf("until nslookup %s; do echo waiting for %s; sleep 2; done;",
					target.Name, target.Name),
			},
		}
		podTemplate.Spec.InitContainers = append(podTemplate.Spec.InitContainers, init)
	}

	for _, sd := range c.Storage {
		if sd.ChownUser == "" && sd.ChownGroup == "" && sd.ChmodMode == "" {
			continue
		}

		cmd := ""
		if sd.ChownUser != "" {
			cmd += fmt.Sprintf("chown -R %s %s ; ", sd.ChownUser, sd.MountPath)
		}
		if sd.ChownGroup != "" {
			cmd += fmt.Sprintf("chgrp -R %s %s ; ", sd.ChownGroup, sd.MountPath)
		}
		if sd.ChmodMode != "" {
			cmd += fmt.Sprintf("chmod -R %s %s ; ", sd.ChmodMode, sd.MountPath)
		}

		init := corev1.Container{
			Name:    "init-storage-" + sd.Name,
			Image:   "busybox",
			Command: []string{"sh", "-c", cmd},
			VolumeMounts: []corev1.VolumeMount{
				{Name: sd.Name, MountPath: sd.MountPath},
			},
		}
		podTemplate.Spec.InitContainers = append(podTemplate.Spec.InitContainers, init)
	}
}

// findServiceTarget implements the dependency-target search from
// BaseComponent::buildInitContainers: a Service named depName directly, or
// the Service child of a Deployment/StatefulSet/DaemonSet named depName.
func findServiceTarget(root *Component, depName string) *Component {
	var target *Component
	root.Walk(func(n *Component) {
		if target != nil || n.Name != depName {
			return
		}
		switch n.Kind {
		case definition.KindService:
			target = n
		case definition.KindDeployment, definition.KindStatefulSet, definition.KindDaemonSet:
			for _, ch := range n.Children {
				if ch.Kind == definition.KindService {
					target = ch
					break
				}
			}
		}
	})
	return target
}
