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

	"github.com/jgaa/k8dep/pkg/utils/file"
)

type secretBehaviour struct{}

// PrepareDeploy materialises a standalone Secret. Only the docker-login
// flavour (imagePullSecrets.fromDockerLogin) fills in data; no file-based
// opaque secret is built, so without that arg the Secret has no data.
func (secretBehaviour) PrepareDeploy(c *Component) error {
	if c.Secret == nil {
		c.Secret = &corev1.Secret{}
	}
	meta := &c.Secret.ObjectMeta
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Namespace == "" {
		meta.Namespace = c.EffectiveNamespace()
	}

	if v, ok := c.Arg("imagePullSecrets.fromDockerLogin"); ok && v != "" {
		encoded, err := file.ReadBase64(v)
		if err != nil {
			return err
		}
		raw, err := decodeBase64(encoded)
		if err != nil {
			return err
		}
		c.Secret.Type = corev1.SecretTypeDockerConfigJson
		if c.Secret.Data == nil {
			c.Secret.Data = map[string][]byte{}
		}
		c.Secret.Data[corev1.DockerConfigJsonKey] = raw
	}

	return nil
}

func (secretBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	if _, ok := obj.(*corev1.Secret); ok {
		return ProbeDone
	}
	return ProbeDoesNotExist
}
