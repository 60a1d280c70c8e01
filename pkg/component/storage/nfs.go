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
	"fmt"
	"path"

	corev1 "k8s.io/api/core/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

// nfsBackend mounts a subdirectory of a shared NFS export, grounded on
// NfsStorage.cpp (server + path + a per-volume subdirectory).
type nfsBackend struct{}

func (nfsBackend) VolumeSource(def definition.StorageDef, args definition.Args) (corev1.PersistentVolumeSource, error) {
	server := def.Params["server"]
	if server == "" {
		server = args["storage.nfs.server"]
	}
	if server == "" {
		return corev1.PersistentVolumeSource{}, fmt.Errorf("storage %s: nfs backend requires params.server or storage.nfs.server", def.Name)
	}

	basePath := def.Params["path"]
	if basePath == "" {
		basePath = "/"
	}

	return corev1.PersistentVolumeSource{
		NFS: &corev1.NFSVolumeSource{
			Server: server,
			Path:   path.Join(basePath, def.Name),
		},
	}, nil
}
