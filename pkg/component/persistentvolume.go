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
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/jgaa/k8dep/pkg/component/storage"
)

type persistentVolumeBehaviour struct{}

// PrepareDeploy builds the volume source for a PersistentVolume using the
// backend strategy named by its StorageDef (spec.md §4.3's "createVolume"
// case; out-of-scope by spec.md §1, supplemented here since SPEC_FULL.md
// §C.2 gives it a concrete home).
func (persistentVolumeBehaviour) PrepareDeploy(c *Component) error {
	if c.PersistentVolume == nil {
		c.PersistentVolume = &corev1.PersistentVolume{}
	}
	meta := &c.PersistentVolume.ObjectMeta
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Labels == nil {
		meta.Labels = map[string]string{}
	}
	for k, v := range c.Labels {
		meta.Labels[k] = v
	}

	if len(c.Storage) != 1 {
		return fmt.Errorf("component %s: PersistentVolume requires exactly one storage entry, got %d", c.Name, len(c.Storage))
	}
	sd := c.Storage[0]

	quantity, err := resource.ParseQuantity(sd.Capacity)
	if err != nil {
		return fmt.Errorf("component %s: invalid capacity %q: %w", c.Name, sd.Capacity, err)
	}

	backend, err := storage.For(sd.Backend)
	if err != nil {
		return err
	}
	source, err := backend.VolumeSource(sd, c.EffectiveArgs)
	if err != nil {
		return err
	}

	c.PersistentVolume.Spec = corev1.PersistentVolumeSpec{
		Capacity:                      corev1.ResourceList{corev1.ResourceStorage: quantity},
		AccessModes:                   []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		PersistentVolumeReclaimPolicy: corev1.PersistentVolumeReclaimRetain,
		PersistentVolumeSource:        source,
	}

	return nil
}

func (persistentVolumeBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	pv, ok := obj.(*corev1.PersistentVolume)
	if !ok {
		return ProbeDoesNotExist
	}
	if pv.Status.Phase == corev1.VolumeAvailable || pv.Status.Phase == corev1.VolumeBound {
		return ProbeDone
	}
	return ProbePending
}
