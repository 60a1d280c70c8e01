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
	"strings"

	networkingv1 "k8s.io/api/networking/v1"

	"github.com/jgaa/k8dep/pkg/definition"
)

type ingressBehaviour struct{}

// ingressPath is one parsed entry of the `ingress.paths` grammar:
// [host:]/path[/*]...
type ingressPath struct {
	Host     string
	Path     string
	PathType networkingv1.PathType
}

// parseIngressPaths implements spec.md §4.3's Ingress path grammar: a
// trailing "/*" means pathType=Prefix, exact path otherwise.
func parseIngressPaths(spec string) ([]ingressPath, error) {
	var out []ingressPath
	for _, entry := range strings.Fields(spec) {
		host, p, hasHost := strings.Cut(entry, ":")
		if !hasHost {
			p = host
			host = ""
		}
		if p == "" {
			return nil, fmt.Errorf("invalid ingress path entry %q", entry)
		}

		pt := networkingv1.PathTypeExact
		if strings.HasSuffix(p, "/*") {
			pt = networkingv1.PathTypePrefix
			p = strings.TrimSuffix(p, "/*")
		}

		out = append(out, ingressPath{Host: host, Path: p, PathType: pt})
	}
	return out, nil
}

// PrepareDeploy implements the Ingress case of spec.md §4.3: the parent
// must be a Service; each path's backend targets that Service and the
// port named by ingress.port (default = first service port); ingress.secret
// adds a matching TLS entry.
func (ingressBehaviour) PrepareDeploy(c *Component) error {
	if c.Ingress == nil {
		c.Ingress = &networkingv1.Ingress{}
	}
	meta := &c.Ingress.ObjectMeta
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Namespace == "" {
		meta.Namespace = c.EffectiveNamespace()
	}

	if c.Parent == nil || c.Parent.Kind != definition.KindService {
		return fmt.Errorf("component %s: Ingress must be a child of a Service", c.Name)
	}
	serviceName := c.Parent.Name

	portName := c.ArgOrDefault("ingress.port", "")
	if portName == "" && len(c.Parent.Service.Spec.Ports) > 0 {
		portName = c.Parent.Service.Spec.Ports[0].Name
	}

	paths, err := parseIngressPaths(c.ArgOrDefault("ingress.paths", ""))
	if err != nil {
		return fmt.Errorf("component %s: %w", c.Name, err)
	}

	byHost := map[string][]networkingv1.HTTPIngressPath{}
	var hostOrder []string
	for _, p := range paths {
		if _, ok := byHost[p.Host]; !ok {
			hostOrder = append(hostOrder, p.Host)
		}
		pt := p.PathType
		byHost[p.Host] = append(byHost[p.Host], networkingv1.HTTPIngressPath{
			Path:     p.Path,
			PathType: &pt,
			Backend: networkingv1.IngressBackend{
				Service: &networkingv1.IngressServiceBackend{
					Name: serviceName,
					Port: networkingv1.ServiceBackendPort{Name: portName},
				},
			},
		})
	}

	for _, host := range hostOrder {
		rule := networkingv1.IngressRule{
			Host: host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{Paths: byHost[host]},
			},
		}
		c.Ingress.Spec.Rules = append(c.Ingress.Spec.Rules, rule)
	}

	if secretName, ok := c.Arg("ingress.secret"); ok && secretName != "" {
		var hosts []string
		for _, host := range hostOrder {
			if host != "" {
				hosts = append(hosts, host)
			}
		}
		c.Ingress.Spec.TLS = append(c.Ingress.Spec.TLS, networkingv1.IngressTLS{
			Hosts:      hosts,
			SecretName: secretName,
		})
	}

	// ingress.certIssuer is passed through verbatim as an annotation; no
	// certificate-issuance logic is implemented here (SPEC_FULL.md §C.3,
	// out of scope per spec.md §1's DNS/cert non-goal).
	if issuer, ok := c.Arg("ingress.certIssuer"); ok && issuer != "" {
		if meta.Annotations == nil {
			meta.Annotations = map[string]string{}
		}
		meta.Annotations["cert-manager.io/cluster-issuer"] = issuer
	}

	return nil
}

func (ingressBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	ing, ok := obj.(*networkingv1.Ingress)
	if !ok {
		return ProbeDoesNotExist
	}
	if v, _ := c.Arg("ingress.useLoadBalancerIp"); v == "true" {
		if len(ing.Status.LoadBalancer.Ingress) > 0 {
			return ProbeDone
		}
		return ProbePending
	}
	return ProbeDone
}
