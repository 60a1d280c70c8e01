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

package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func storageTree() *Node {
	return &Node{
		Name: "root",
		Kind: KindApp,
		Children: []*Node{
			{Name: "storage", Kind: KindPersistentVolume, Variant: ""},
			{Name: "storage", Kind: KindPersistentVolume, Variant: "nfs"},
			{Name: "storage", Kind: KindPersistentVolume, Variant: "hostpath"},
			{Name: "frontend", Kind: KindDeployment},
		},
	}
}

func TestSelectVariantsEnablesRequestedAndDisablesSiblings(t *testing.T) {
	root := storageTree()
	err := SelectVariants(root, []VariantSelector{{NameFilter: "^storage$", Variant: "nfs"}})
	assert.NoError(t, err)

	for _, c := range root.Children {
		if c.Name != "storage" {
			continue
		}
		assert.Equal(t, c.Variant == "nfs", c.IsEnabled(), "variant %q", c.Variant)
	}
}

func TestSelectVariantsDefaultWinsWhenBothEnabled(t *testing.T) {
	root := storageTree()
	for _, c := range root.Children {
		if c.Name == "storage" && c.Variant == "nfs" {
			c.SetEnabled(true)
		}
	}
	err := SelectVariants(root, nil)
	assert.NoError(t, err)

	for _, c := range root.Children {
		if c.Name != "storage" {
			continue
		}
		if c.Variant == "" {
			assert.True(t, c.IsEnabled())
		} else {
			assert.False(t, c.IsEnabled())
		}
	}
}

func TestSelectVariantsNoMatchLeavesUniqueNamesUntouched(t *testing.T) {
	root := &Node{
		Name: "root",
		Kind: KindApp,
		Children: []*Node{
			{Name: "frontend", Kind: KindDeployment},
			{Name: "backend", Kind: KindDeployment},
		},
	}
	err := SelectVariants(root, []VariantSelector{{NameFilter: "^nonexistent$", Variant: "x"}})
	assert.NoError(t, err)
	for _, c := range root.Children {
		assert.True(t, c.IsEnabled())
	}
}

func TestCompileFiltersDefaults(t *testing.T) {
	f, err := CompileFilters("", "", "")
	assert.NoError(t, err)
	assert.True(t, f.Admits("anything", true))
	assert.False(t, f.Admits("anything", false))
}

func TestCompileFiltersEnableOverridesDisabled(t *testing.T) {
	f, err := CompileFilters("^debug-.*$", "", "")
	assert.NoError(t, err)
	assert.True(t, f.Admits("debug-sidecar", false))
	assert.False(t, f.Admits("other", false))
}

func TestCompileFiltersExcludeWins(t *testing.T) {
	f, err := CompileFilters("", "", "^skip-.*$")
	assert.NoError(t, err)
	assert.False(t, f.Admits("skip-me", true))
	assert.True(t, f.Admits("keep-me", true))
}

func TestCompileFiltersIncludeRestricts(t *testing.T) {
	f, err := CompileFilters("", "^only-.*$", "")
	assert.NoError(t, err)
	assert.True(t, f.Admits("only-this", true))
	assert.False(t, f.Admits("not-this", true))
}

func TestCompileFiltersInvalidRegex(t *testing.T) {
	_, err := CompileFilters("", "(", "")
	assert.Error(t, err)
}
