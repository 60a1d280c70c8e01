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

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureDirAndIsFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	assert.NoError(t, EnsureDir(dir))

	ok, err := IsFileExists(dir)
	assert.Error(t, err)
	assert.False(t, ok)

	f := filepath.Join(dir, "data.txt")
	assert.NoError(t, os.WriteFile(f, []byte("hello"), 0644))

	ok, err = IsFileExists(f)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsFileExists(filepath.Join(dir, "missing.txt"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReadBase64(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "payload.bin")
	assert.NoError(t, os.WriteFile(f, []byte("k8dep"), 0644))

	encoded, err := ReadBase64(f)
	assert.NoError(t, err)
	assert.Equal(t, "azhkZXA=", encoded)
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "data.txt", Basename("/a/b/data.txt"))
}
