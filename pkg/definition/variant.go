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
	"fmt"
	"regexp"
)

// VariantSelector is one `--variant name-regex=variant` CLI declaration: among all
// nodes whose name matches NameFilter, enable the one carrying Variant and
// disable its same-named siblings.
type VariantSelector struct {
	NameFilter string
	Variant    string
}

// SelectVariants applies spec.md's variant-selection algorithm to the whole
// tree rooted at root, mutating Enabled flags in place:
//
//  1. For each selector, find every node whose name matches NameFilter and
//     carries Variant; enable it and disable every other node sharing its
//     name.
//  2. For every name used by more than one node, if the default (empty
//     Variant) copy ends up enabled alongside a named variant, the named
//     variant loses — the default always wins ties.
//
// Matches the original's two-pass populate() logic run once, up front, over
// the whole tree rather than node-by-node during population.
func SelectVariants(root *Node, selectors []VariantSelector) error {
	byName := map[string][]*Node{}
	root.Walk(func(n *Node) {
		byName[n.Name] = append(byName[n.Name], n)
	})

	for _, sel := range selectors {
		filter, err := regexp.Compile(sel.NameFilter)
		if err != nil {
			return fmt.Errorf("invalid variant filter %q: %w", sel.NameFilter, err)
		}

		var candidateNames []string
		for name := range byName {
			if filter.MatchString(name) {
				candidateNames = append(candidateNames, name)
			}
		}
		if len(candidateNames) == 0 {
			continue
		}

		for _, name := range candidateNames {
			for _, n := range byName[name] {
				if n.Variant != sel.Variant {
					continue
				}
				n.SetEnabled(true)
				for _, sibling := range byName[name] {
					if sibling.Variant != sel.Variant {
						sibling.SetEnabled(false)
					}
				}
			}
		}
	}

	for name, nodes := range byName {
		_ = name
		activeCount := 0
		defaultEnabled := false
		for _, n := range nodes {
			if n.IsEnabled() {
				activeCount++
				if n.Variant == "" {
					defaultEnabled = true
				}
			}
		}
		if activeCount > 1 && defaultEnabled {
			for _, n := range nodes {
				if n.Variant != "" && n.IsEnabled() {
					n.SetEnabled(false)
				}
			}
		}
	}

	return nil
}

// Filters holds the three name-matching regexes spec.md's CLI accepts:
// enable forces in a disabled component, include/exclude prune the tree
// independently of the enabled flag.
type Filters struct {
	Enable  *regexp.Regexp
	Include *regexp.Regexp
	Exclude *regexp.Regexp
}

// CompileFilters builds a Filters from the raw regex strings, defaulting
// Include to "match everything" and Exclude/Enable to "match nothing" when
// left blank, matching the original's empty-regex defaults.
func CompileFilters(enable, include, exclude string) (Filters, error) {
	var f Filters
	var err error

	if enable == "" {
		enable = "^$"
	}
	if include == "" {
		include = ".*"
	}
	if exclude == "" {
		exclude = "^$"
	}

	if f.Enable, err = regexp.Compile(enable); err != nil {
		return f, fmt.Errorf("invalid enable filter %q: %w", enable, err)
	}
	if f.Include, err = regexp.Compile(include); err != nil {
		return f, fmt.Errorf("invalid include filter %q: %w", include, err)
	}
	if f.Exclude, err = regexp.Compile(exclude); err != nil {
		return f, fmt.Errorf("invalid exclude filter %q: %w", exclude, err)
	}
	return f, nil
}

// Admits reports whether a node with the given name and enabled flag
// survives the filters: disabled components are dropped unless the enable
// filter names them, then the result is pruned again by include/exclude.
// A nil regex (as in a zero Filters) acts like CompileFilters' blank
// default for that field.
func (f Filters) Admits(name string, enabled bool) bool {
	if !enabled && (f.Enable == nil || !f.Enable.MatchString(name)) {
		return false
	}
	if f.Exclude != nil && f.Exclude.MatchString(name) {
		return false
	}
	return f.Include == nil || f.Include.MatchString(name)
}
