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

package dnsprovision

import (
	"context"
	"testing"

	networkingv1 "k8s.io/api/networking/v1"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgaa/k8dep/pkg/component"
	"github.com/jgaa/k8dep/pkg/definition"
)

func ingressComponent(t *testing.T, hosts ...string) *component.Component {
	t.Helper()
	svc := &definition.Node{
		Name: "web-svc",
		Kind: definition.KindService,
		Children: []*definition.Node{
			{Name: "web-ing", Kind: definition.KindIngress, Args: definition.Args{}},
		},
	}
	c, err := component.Build(svc, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))

	ing := c.Find(func(n *component.Component) bool { return n.Name == "web-ing" })
	require.NotNil(t, ing)
	for _, h := range hosts {
		ing.Ingress.Spec.Rules = append(ing.Ingress.Spec.Rules, networkingv1.IngressRule{Host: h})
	}
	return ing
}

type failingSubmitter struct {
	failures int
	calls    int
}

func (f *failingSubmitter) Submit(ctx context.Context, hostname string, records []dns.RR) error {
	f.calls++
	if f.calls <= f.failures {
		return assertErr("submit failed")
	}
	return nil
}
func (f *failingSubmitter) Delete(ctx context.Context, hostname string) error { return nil }

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestProvisionBuildsARecordPerIPv4Address(t *testing.T) {
	c := ingressComponent(t, "app.example.com")
	rec := NewRecordingSubmitter()
	p := New(Config{Retries: 1}, []string{"10.0.0.1", "10.0.0.2"}, nil, rec)

	require.NoError(t, p.Provision(context.Background(), c))

	records := rec.Submitted["app.example.com"]
	require.Len(t, records, 2)
	for _, rr := range records {
		a, ok := rr.(*dns.A)
		require.True(t, ok)
		assert.Equal(t, "app.example.com.", a.Hdr.Name)
	}
}

func TestProvisionSkipsRulesWithoutHost(t *testing.T) {
	c := ingressComponent(t, "", "with-host.example.com")
	rec := NewRecordingSubmitter()
	p := New(Config{Retries: 1}, []string{"10.0.0.1"}, nil, rec)

	require.NoError(t, p.Provision(context.Background(), c))
	assert.Len(t, rec.Submitted, 1)
	_, ok := rec.Submitted["with-host.example.com"]
	assert.True(t, ok)
}

func TestProvisionIsIdempotentWithinOneProcessRun(t *testing.T) {
	c := ingressComponent(t, "app.example.com")
	rec := NewRecordingSubmitter()
	p := New(Config{Retries: 1}, []string{"10.0.0.1"}, nil, rec)

	require.NoError(t, p.Provision(context.Background(), c))
	require.NoError(t, p.Provision(context.Background(), c))

	assert.Len(t, rec.Submitted, 1)
}

func TestProvisionRetriesOnSubmitFailure(t *testing.T) {
	c := ingressComponent(t, "app.example.com")
	sub := &failingSubmitter{failures: 1}
	p := New(Config{Retries: 3, RetryDelaySeconds: 0}, []string{"10.0.0.1"}, nil, sub)

	require.NoError(t, p.Provision(context.Background(), c))
	assert.Equal(t, 2, sub.calls)
}

func TestProvisionFailsAfterExhaustingRetries(t *testing.T) {
	c := ingressComponent(t, "app.example.com")
	sub := &failingSubmitter{failures: 5}
	p := New(Config{Retries: 2, RetryDelaySeconds: 0}, []string{"10.0.0.1"}, nil, sub)

	err := p.Provision(context.Background(), c)
	assert.Error(t, err)
}

func TestProvisionRejectsNonIngressComponent(t *testing.T) {
	def := &definition.Node{Name: "cfg", Kind: definition.KindConfigMap}
	c, err := component.Build(def, component.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, component.PrepareAll(c))

	p := New(Config{Retries: 1}, []string{"10.0.0.1"}, nil, NewRecordingSubmitter())
	assert.Error(t, p.Provision(context.Background(), c))
}
