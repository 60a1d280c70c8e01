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
	"fmt"
	"strconv"
	"strings"
)

type httpRequestBehaviour struct{}

// PrepareDeploy parses `target` of the form "METHOD URL" and gathers json,
// auth (user+passwd), retry.count, retry.delay.seconds (spec.md §4.3's
// HttpRequest case).
func (httpRequestBehaviour) PrepareDeploy(c *Component) error {
	target := c.ArgOrDefault("target", "")
	method, url, ok := strings.Cut(strings.TrimSpace(target), " ")
	if !ok {
		return fmt.Errorf("component %s: target %q must be \"METHOD URL\"", c.Name, target)
	}

	spec := &HttpRequestSpec{
		Method: strings.ToUpper(method),
		URL:    strings.TrimSpace(url),
		JSON:   c.ArgOrDefault("json", ""),
	}

	if auth, ok := c.Arg("auth"); ok {
		user, pass, _ := strings.Cut(auth, ":")
		spec.AuthUser = user
		spec.AuthPassword = pass
	}

	spec.RetryCount = 0
	if v, ok := c.Arg("retry.count"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			spec.RetryCount = n
		}
	}
	spec.RetryDelaySeconds = 1
	if v, ok := c.Arg("retry.delay.seconds"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			spec.RetryDelaySeconds = n
		}
	}

	c.HttpRequest = spec
	return nil
}

func (httpRequestBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	// HttpRequest tasks resolve their own completion state (pkg/task); the
	// component is never GET-probed against the API server.
	return ProbeDone
}
