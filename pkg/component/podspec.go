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
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// RemoveEnvVars is set once at process startup from the `--remove-env-var`
// CLI flags (spec.md §6); basicPrepareDeploy consults it when building
// pod.env.
var RemoveEnvVars []string

// IgnoreResourceLimits mirrors the original's Engine::config().
// ignoreResourceLimits switch. No CLI flag sets it.
var IgnoreResourceLimits bool

// selectorLabel returns the label this component's pods are selected by:
// k8dep-component=<name>. basicPrepareDeploy sets it before copying
// c.Labels, so on pod-bearing objects it takes the place of the
// k8dep-component label init() stamps (which names the nearest App).
func (c *Component) selectorLabel() map[string]string {
	return map[string]string{"k8dep-component": c.Name}
}

// basicPrepareDeploy is the shared pod-template build (no child synthesis)
// for every pod-bearing kind (Job, Deployment, StatefulSet, DaemonSet): metadata
// defaults, selector/label wiring and the single container built from args.
// Grounded on BaseComponent::basicPrepareDeploy in the original source.
func (c *Component) basicPrepareDeploy(meta *metav1.ObjectMeta, podTemplate *corev1.PodTemplateSpec) error {
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Namespace == "" {
		meta.Namespace = c.EffectiveNamespace()
	}

	if meta.Labels == nil {
		meta.Labels = map[string]string{}
	}
	for k, v := range c.selectorLabel() {
		if _, ok := meta.Labels[k]; !ok {
			meta.Labels[k] = v
		}
	}
	for k, v := range c.Labels {
		if _, ok := meta.Labels[k]; !ok {
			meta.Labels[k] = v
		}
	}

	if podTemplate.ObjectMeta.Name == "" {
		podTemplate.ObjectMeta.Name = c.Name
	}
	if podTemplate.ObjectMeta.Labels == nil {
		podTemplate.ObjectMeta.Labels = map[string]string{}
	}
	for k, v := range meta.Labels {
		if _, ok := podTemplate.ObjectMeta.Labels[k]; !ok {
			podTemplate.ObjectMeta.Labels[k] = v
		}
	}

	if c.PodSecurityContext != nil && podTemplate.Spec.SecurityContext == nil {
		podTemplate.Spec.SecurityContext = c.PodSecurityContext
	}

	if sa, ok := c.Arg("serviceAccountName"); ok && podTemplate.Spec.ServiceAccountName == "" {
		podTemplate.Spec.ServiceAccountName = sa
	}

	container, err := c.buildContainer()
	if err != nil {
		return err
	}

	if pullSecret, ok := c.Arg("imagePullSecrets"); ok && pullSecret != "" {
		podTemplate.Spec.ImagePullSecrets = append(podTemplate.Spec.ImagePullSecrets,
			corev1.LocalObjectReference{Name: pullSecret})
	}

	if tlsSecret, ok := c.Arg("tls.secret"); ok && tlsSecret != "" {
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      "tls-secret",
			MountPath: "/certs",
			ReadOnly:  true,
		})
		podTemplate.Spec.Volumes = append(podTemplate.Spec.Volumes, corev1.Volume{
			Name: "tls-secret",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: tlsSecret},
			},
		})
	}

	podTemplate.Spec.Containers = append(podTemplate.Spec.Containers, *container)
	return nil
}

// buildContainer constructs the single application container from
// EffectiveArgs, matching BaseComponent::basicPrepareDeploy's container
// assembly.
func (c *Component) buildContainer() (*corev1.Container, error) {
	container := corev1.Container{
		Name:  c.Name,
		Image: c.ArgOrDefault("image", c.Name),
	}

	if v, ok := c.Arg("pod.args"); ok {
		container.Args = splitArgs(v)
	}
	if v, ok := c.Arg("pod.command"); ok {
		container.Command = splitArgs(v)
	}
	if v, ok := c.Arg("imagePullPolicy"); ok {
		container.ImagePullPolicy = corev1.PullPolicy(v)
	}

	if v, ok := c.Arg("pod.env"); ok {
		container.Env = filterEnvVars(parseEnvList(v))
	}

	ports, err := ParsePorts(c.ArgOrDefault("port", ""))
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", c.Name, err)
	}
	for _, p := range ports {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			ContainerPort: int32(p.Port),
			Name:          p.GetName(),
			Protocol:      corev1.Protocol(p.Protocol),
		})
	}

	if !IgnoreResourceLimits {
		applyResources(&container, c)
	}

	if c.SecurityContext != nil {
		container.SecurityContext = c.SecurityContext
	}
	container.StartupProbe = c.StartupProbe
	container.LivenessProbe = c.LivenessProbe
	container.ReadinessProbe = c.ReadinessProbe

	return &container, nil
}

// splitArgs splits a space-separated argument value the way pod.args and
// pod.command are declared.
func splitArgs(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.Fields(v)
}

// parseEnvList parses a space-separated list of NAME=VALUE pairs, the
// pod.env grammar.
func parseEnvList(v string) []corev1.EnvVar {
	var out []corev1.EnvVar
	for _, entry := range strings.Fields(v) {
		name, value, _ := strings.Cut(entry, "=")
		out = append(out, corev1.EnvVar{Name: name, Value: value})
	}
	return out
}

// filterEnvVars drops any entry named in RemoveEnvVars, mirroring
// BaseComponent::filterEnvVars.
func filterEnvVars(vars []corev1.EnvVar) []corev1.EnvVar {
	if len(RemoveEnvVars) == 0 {
		return vars
	}
	excluded := make(map[string]bool, len(RemoveEnvVars))
	for _, n := range RemoveEnvVars {
		excluded[n] = true
	}
	out := vars[:0]
	for _, v := range vars {
		if !excluded[v.Name] {
			out = append(out, v)
		}
	}
	return out
}

// applyResources fills in CPU/memory requests and limits from
// pod.limits.memory / pod.memory / pod.limits.cpu / pod.cpu /
// pod.requests.memory / pod.requests.cpu, matching the original's fallback
// chain (a specific limits/requests key wins over the generic pod.memory /
// pod.cpu shorthand).
func applyResources(container *corev1.Container, c *Component) {
	limits := corev1.ResourceList{}
	requests := corev1.ResourceList{}

	setIfPresent := func(list corev1.ResourceList, name corev1.ResourceName, keys ...string) {
		for _, k := range keys {
			if v, ok := c.Arg(k); ok && v != "" {
				if q, err := resource.ParseQuantity(v); err == nil {
					list[name] = q
				}
				return
			}
		}
	}

	setIfPresent(limits, corev1.ResourceMemory, "pod.limits.memory", "pod.memory")
	setIfPresent(limits, corev1.ResourceCPU, "pod.limits.cpu", "pod.cpu")
	setIfPresent(requests, corev1.ResourceMemory, "pod.requests.memory", "pod.memory")
	setIfPresent(requests, corev1.ResourceCPU, "pod.requests.cpu", "pod.cpu")

	if len(limits) > 0 || len(requests) > 0 {
		container.Resources = corev1.ResourceRequirements{Limits: limits, Requests: requests}
	}
}
