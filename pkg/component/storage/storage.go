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

// Package storage implements the persistent-volume backend strategies that
// spec.md §1 calls out-of-scope for the core ("Storage backends that
// synthesise persistent-volume specs") but SPEC_FULL.md §C.2 supplements:
// each backend turns a definition.StorageDef into a concrete
// corev1.PersistentVolumeSource. Grounded on original_source/src/Storage.cpp's
// HostPathStorage/NfsStorage.
package storage

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

// Backend turns a storage declaration into the PersistentVolumeSource half
// of a PersistentVolume spec.
type Backend interface {
	// VolumeSource builds the backend-specific volume source. args is the
	// owning component's effective arguments, consulted for any
	// backend-wide defaults (e.g. a cluster-level NFS server).
	VolumeSource(def definition.StorageDef, args definition.Args) (corev1.PersistentVolumeSource, error)
}

// For resolves a backend by name ("hostPath" or "nfs"); empty defaults to
// hostPath, matching the original's implicit default when no storage
// provider is configured.
func For(name string) (Backend, error) {
	switch name {
	case "", "hostPath":
		return hostPathBackend{}, nil
	case "nfs":
		return nfsBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
}
