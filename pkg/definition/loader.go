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
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a definition file from path and unmarshals it into a Node
// tree. YAML is accepted directly (spec.md §6's "Definition file"), since
// Node's fields already carry yaml struct tags; no separate YAML→JSON
// translation step is needed the way the original's loader required one.
//
// The ${name[,default]} variable grammar is then expanded over every
// Args/Labels/DefaultArgs value and storage parameter in the tree, using
// vars. Function-call macros (eval/expr/intexpr) are expanded as part of
// the same pass, since Expand handles both grammars in one scan.
func Load(path string, vars Variables) (*Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file %s: %w", path, err)
	}

	var root Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parsing definition file %s: %w", path, err)
	}

	if err := ExpandTree(&root, vars); err != nil {
		return nil, fmt.Errorf("expanding variables in %s: %w", path, err)
	}

	return &root, nil
}

// ExpandTree walks root and every descendant, expanding vars over each
// node's Args, Labels, DefaultArgs and storage definitions in place. Name,
// Kind and Variant are left untouched: the original never macro-expands a
// node's own identity fields, only the values an operator is expected to
// template.
func ExpandTree(root *Node, vars Variables) error {
	var walkErr error
	root.Walk(func(n *Node) {
		if walkErr != nil {
			return
		}
		if walkErr = expandArgs(n.Labels, vars); walkErr != nil {
			return
		}
		if walkErr = expandArgs(n.Args, vars); walkErr != nil {
			return
		}
		if walkErr = expandArgs(n.DefaultArgs, vars); walkErr != nil {
			return
		}
		for i := range n.Storage {
			if walkErr = expandStorage(&n.Storage[i], vars); walkErr != nil {
				return
			}
		}
		for i, dep := range n.Depends {
			expanded, err := Expand(dep, vars)
			if err != nil {
				walkErr = fmt.Errorf("node %q: %w", n.Name, err)
				return
			}
			n.Depends[i] = expanded
		}
	})
	return walkErr
}

func expandArgs(a Args, vars Variables) error {
	for k, v := range a {
		expanded, err := Expand(v, vars)
		if err != nil {
			return fmt.Errorf("arg %q: %w", k, err)
		}
		a[k] = expanded
	}
	return nil
}

func expandStorage(s *StorageDef, vars Variables) error {
	fields := []*string{&s.Name, &s.MountPath, &s.Capacity, &s.Backend, &s.ChownUser, &s.ChownGroup, &s.ChmodMode}
	for _, f := range fields {
		expanded, err := Expand(*f, vars)
		if err != nil {
			return err
		}
		*f = expanded
	}
	return expandArgs(s.Params, vars)
}
