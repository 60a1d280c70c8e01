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

package storage

import (
	"path/filepath"

	corev1 "k8s.io/api/core/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

// hostPathBackend mounts a directory under a base path on the node the pod
// lands on, grounded on HostPathStorage.cpp. params["basePath"] sets the
// root directory; the volume's own directory is basePath/<name>.
type hostPathBackend struct{}

func (hostPathBackend) VolumeSource(def definition.StorageDef, _ definition.Args) (corev1.PersistentVolumeSource, error) {
	base := def.Params["basePath"]
	if base == "" {
		base = "/var/lib/k8dep/volumes"
	}

	hostPathType := corev1.HostPathDirectoryOrCreate
	return corev1.PersistentVolumeSource{
		HostPath: &corev1.HostPathVolumeSource{
			Path: filepath.Join(base, def.Name),
			Type: &hostPathType,
		},
	}, nil
}
