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

// concatArgs are the keys that accumulate across ancestors instead of
// being overridden (spec.md §4.1).
var concatArgs = map[string]bool{
	"pod.args": true,
	"pod.env":  true,
}

// AncestorDefaults is anything that can supply defaultArgs along the path
// from a node to the root. Both *Node and component trees satisfy this
// once wrapped, keeping the merge law independent of the tree package.
type AncestorDefaults interface {
	OwnDefaultArgs() Args
}

// MergeArgs implements the effective-argument merge law of spec.md §4.1:
// start from own args, then walk ancestors root-ward applying each
// ancestor's defaultArgs — concatenating for pod.args/pod.env, otherwise
// filling in only if absent. ancestors must be ordered nearest-first (self
// excluded, parent first, root last).
func MergeArgs(own Args, ancestors []Args) Args {
	merged := make(Args, len(own))
	for k, v := range own {
		merged[k] = v
	}

	for _, defaultArgs := range ancestors {
		for k, v := range defaultArgs {
			if concatArgs[k] {
				if existing, ok := merged[k]; ok && existing != "" {
					merged[k] = existing + " " + v
				} else {
					merged[k] = v
				}
				continue
			}
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}

	return merged
}
