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
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/jgaa/k8dep/pkg/utils/file"
)

type configMapBehaviour struct{}

// PrepareDeploy materialises a standalone ConfigMap component from
// config.fromFile, the same way synthesizeConfigMapFromFiles does for a
// pod-bearing parent's implicit child (spec.md §4.3's "ConfigMap / Secret"
// case).
func (configMapBehaviour) PrepareDeploy(c *Component) error {
	if c.ConfigMap == nil {
		c.ConfigMap = &corev1.ConfigMap{}
	}
	meta := &c.ConfigMap.ObjectMeta
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Namespace == "" {
		meta.Namespace = c.EffectiveNamespace()
	}

	v, ok := c.Arg("config.fromFile")
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}

	if c.ConfigMap.BinaryData == nil {
		c.ConfigMap.BinaryData = map[string][]byte{}
	}
	for _, path := range strings.Fields(v) {
		encoded, err := file.ReadBase64(path)
		if err != nil {
			return err
		}
		raw, err := decodeBase64(encoded)
		if err != nil {
			return err
		}
		c.ConfigMap.BinaryData[file.Basename(path)] = raw
	}
	return nil
}

func (configMapBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*corev1.ConfigMap); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}
