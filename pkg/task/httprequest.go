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

package task

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jgaa/k8dep/pkg/component"
)

// HTTPClient executes an HttpRequest component's retry loop over plain
// net/http, grounded on HttpRequestComponent.cpp's sendRequest: one
// attempt plus up to retry.count retries spaced by retry.delay.seconds,
// returning the last error once they are used up.
// Retries use backoff.WithMaxRetries over a constant backoff rather than
// the original's fixed ctx.Sleep, since that is the idiom the pack uses
// wherever it wraps a flaky network call in cenkalti/backoff.
type HTTPClient struct {
	Client *http.Client
}

// NewHTTPClient constructs a client with a sane default transport timeout.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (h *HTTPClient) Do(ctx context.Context, spec *component.HttpRequestSpec) error {
	if spec == nil {
		return fmt.Errorf("http request: nil spec")
	}

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(time.Duration(spec.RetryDelaySeconds)*time.Second),
		uint64(spec.RetryCount),
	)

	return backoff.Retry(func() error {
		return h.attempt(ctx, spec)
	}, backoff.WithContext(policy, ctx))
}

func (h *HTTPClient) attempt(ctx context.Context, spec *component.HttpRequestSpec) error {
	var body io.Reader
	if spec.JSON != "" {
		body = strings.NewReader(spec.JSON)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	if spec.JSON != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.AuthUser != "" {
		req.SetBasicAuth(spec.AuthUser, spec.AuthPassword)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("http request to %s: server error %s", spec.URL, resp.Status)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("http request to %s: %s", spec.URL, resp.Status))
	}
	return nil
}
