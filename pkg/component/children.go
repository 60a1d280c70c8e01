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
	"encoding/base64"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/jgaa/k8dep/pkg/definition"
	"github.com/jgaa/k8dep/pkg/utils/file"
)

// decodeBase64 reverses file.ReadBase64's encoding so the raw bytes can
// populate a ConfigMap/Secret's BinaryData map.
func decodeBase64(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// synthesizeImplicitChildren implements the shared implicit-child cases of
// spec.md §4.3 common to every pod-bearing kind: a paired Service, a
// ConfigMap built from files, a Secret built from docker credentials, and
// per-replica PersistentVolumes with a matching PVC template. Each
// synthesised node is appended to c.Children with ParentRelation = BEFORE,
// since the pod-bearing component's completion depends on it existing
// first (S1 in spec.md §8).
func (c *Component) synthesizeImplicitChildren(replicas int32) error {
	if err := c.synthesizeService(); err != nil {
		return err
	}
	if err := c.synthesizeConfigMapFromFiles(); err != nil {
		return err
	}
	if err := c.synthesizeSecretFromDockerLogin(); err != nil {
		return err
	}
	if err := c.synthesizeStorage(replicas); err != nil {
		return err
	}
	return nil
}

func (c *Component) hasChildOfKind(k definition.Kind) bool {
	for _, ch := range c.Children {
		if ch.Kind == k {
			return true
		}
	}
	return false
}

func (c *Component) newChild(name string, kind definition.Kind) *Component {
	child := &Component{
		Name:           name,
		Kind:           kind,
		Parent:         c,
		ParentRelation: definition.Before,
		Args:           definition.Args{},
		Labels:         definition.Args{},
		State:          StatePre,
	}
	b, _ := behaviourFor(kind)
	child.Behaviour = b
	c.Children = append(c.Children, child)
	return child
}

// synthesizeService implements "If a Service does not exist as a child and
// service.enabled is not false, synthesise one" (spec.md §4.3 / S1).
func (c *Component) synthesizeService() error {
	if c.hasChildOfKind(definition.KindService) {
		return nil
	}
	if v, ok := c.Arg("service.enabled"); ok && v == "false" {
		return nil
	}

	svc := c.newChild(c.Name+"-svc", definition.KindService)
	for k, v := range c.Labels {
		svc.Labels[k] = v
	}
	if v, ok := c.Arg("service.nodePort"); ok {
		svc.Args["service.nodePort"] = v
	}
	if v, ok := c.Arg("service.type"); ok {
		svc.Args["service.type"] = v
	}
	svc.ResolveArgs()
	return svc.Behaviour.PrepareDeploy(svc)
}

// synthesizeConfigMapFromFiles implements "If config.fromFile lists files,
// synthesise a ConfigMap child whose binaryData[<basename>] is the
// Base64-encoded file contents; mount it at /config on each container."
func (c *Component) synthesizeConfigMapFromFiles() error {
	v, ok := c.Arg("config.fromFile")
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}

	cm := c.newChild(c.Name+"-config", definition.KindConfigMap)
	cm.ConfigMap = &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cm.Name,
			Namespace: c.EffectiveNamespace(),
		},
		BinaryData: map[string][]byte{},
	}

	for _, path := range strings.Fields(v) {
		encoded, err := file.ReadBase64(path)
		if err != nil {
			return fmt.Errorf("component %s: config.fromFile %q: %w", c.Name, path, err)
		}
		raw, err := decodeBase64(encoded)
		if err != nil {
			return err
		}
		cm.ConfigMap.BinaryData[file.Basename(path)] = raw
	}

	if podTemplate := c.PodTemplate(); podTemplate != nil {
		podTemplate.Spec.Volumes = append(podTemplate.Spec.Volumes, corev1.Volume{
			Name: "config",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: cm.Name},
				},
			},
		})
		for i := range podTemplate.Spec.Containers {
			podTemplate.Spec.Containers[i].VolumeMounts = append(podTemplate.Spec.Containers[i].VolumeMounts,
				corev1.VolumeMount{Name: "config", MountPath: "/config"})
		}
	}

	return nil
}

// synthesizeSecretFromDockerLogin implements "If
// imagePullSecrets.fromDockerLogin names a docker-config file, synthesise
// a Secret child of type kubernetes.io/dockerconfigjson; reference it from
// the pod."
func (c *Component) synthesizeSecretFromDockerLogin() error {
	v, ok := c.Arg("imagePullSecrets.fromDockerLogin")
	if !ok || v == "" {
		return nil
	}

	encoded, err := file.ReadBase64(v)
	if err != nil {
		return fmt.Errorf("component %s: imagePullSecrets.fromDockerLogin %q: %w", c.Name, v, err)
	}
	raw, err := decodeBase64(encoded)
	if err != nil {
		return err
	}

	secret := c.newChild(c.Name+"-dockerlogin", definition.KindSecret)
	secret.Secret = &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secret.Name,
			Namespace: c.EffectiveNamespace(),
		},
		Type: corev1.SecretTypeDockerConfigJson,
		Data: map[string][]byte{
			corev1.DockerConfigJsonKey: raw,
		},
	}

	if podTemplate := c.PodTemplate(); podTemplate != nil {
		podTemplate.Spec.ImagePullSecrets = append(podTemplate.Spec.ImagePullSecrets,
			corev1.LocalObjectReference{Name: secret.Name})
	}
	return nil
}

// synthesizeStorage implements "For each storage[] entry with
// createVolume=true and a cluster storage backend, synthesise one
// PersistentVolume per replica and add a PersistentVolumeClaim template +
// matching volumeMount."
func (c *Component) synthesizeStorage(replicas int32) error {
	podTemplate := c.PodTemplate()
	if podTemplate == nil {
		return nil
	}

	for _, sd := range c.Storage {
		if !sd.CreateVolume {
			continue
		}

		for i := int32(0); i < replicas; i++ {
			pv := c.newChild(fmt.Sprintf("%s-%s-%d", c.Name, sd.Name, i), definition.KindPersistentVolume)
			pv.Storage = []definition.StorageDef{sd}
			pv.Args["storage.index"] = fmt.Sprintf("%d", i)
			pv.ResolveArgs()
			if err := pv.Behaviour.PrepareDeploy(pv); err != nil {
				return err
			}
		}

		quantity, err := resource.ParseQuantity(sd.Capacity)
		if err != nil {
			return fmt.Errorf("component %s: storage %s: invalid capacity %q: %w", c.Name, sd.Name, sd.Capacity, err)
		}

		pvcTemplate := corev1.PersistentVolumeClaim{
			ObjectMeta: metav1.ObjectMeta{Name: sd.Name},
			Spec: corev1.PersistentVolumeClaimSpec{
				AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
				Resources: corev1.VolumeResourceRequirements{
					Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
				},
			},
		}

		switch c.Kind {
		case definition.KindStatefulSet:
			c.StatefulSet.Spec.VolumeClaimTemplates = append(c.StatefulSet.Spec.VolumeClaimTemplates, pvcTemplate)
		default:
			// Non-StatefulSet pod-bearing kinds reference the PVC directly
			// by name instead of a per-pod template.
			podTemplate.Spec.Volumes = append(podTemplate.Spec.Volumes, corev1.Volume{
				Name: sd.Name,
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: sd.Name},
				},
			})
		}

		for i := range podTemplate.Spec.Containers {
			podTemplate.Spec.Containers[i].VolumeMounts = append(podTemplate.Spec.Containers[i].VolumeMounts,
				corev1.VolumeMount{Name: sd.Name, MountPath: sd.MountPath})
		}
	}

	return nil
}
