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

// App is a pure grouping placeholder: it owns other components but
// contributes no Kubernetes object of its own (spec.md §3's object-kind
// list; "App" groups components under a shared k8dep-component label,
// per init()'s labelling rule in spec.md §4.2).
type appBehaviour struct{}

func (appBehaviour) PrepareDeploy(c *Component) error {
	return nil
}

func (appBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	return ProbeDone
}
