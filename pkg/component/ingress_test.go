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
	"testing"

	networkingv1 "k8s.io/api/networking/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIngressPathsPrefixStripsSlashStar(t *testing.T) {
	paths, err := parseIngressPaths("/app/*")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "/app", paths[0].Path)
	assert.Equal(t, networkingv1.PathTypePrefix, paths[0].PathType)
}

func TestParseIngressPathsExactLeavesPathUntouched(t *testing.T) {
	paths, err := parseIngressPaths("/app")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "/app", paths[0].Path)
	assert.Equal(t, networkingv1.PathTypeExact, paths[0].PathType)
}

func TestParseIngressPathsWithHost(t *testing.T) {
	paths, err := parseIngressPaths("example.com:/api/*")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "example.com", paths[0].Host)
	assert.Equal(t, "/api", paths[0].Path)
	assert.Equal(t, networkingv1.PathTypePrefix, paths[0].PathType)
}

func TestParseIngressPathsMultipleEntries(t *testing.T) {
	paths, err := parseIngressPaths("/app/* /status")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "/app", paths[0].Path)
	assert.Equal(t, "/status", paths[1].Path)
	assert.Equal(t, networkingv1.PathTypeExact, paths[1].PathType)
}

func TestParseIngressPathsEmptyPathErrors(t *testing.T) {
	_, err := parseIngressPaths("example.com:")
	assert.Error(t, err)
}
