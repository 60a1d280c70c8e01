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

// PortInfo is one entry of the `port` argument grammar (spec.md §4.3):
//
//	port=N[:name=...][:protocol=...][:nodePort=...][:serviceName=...][:serviceType=...][:ingress]
//
// Several ports are declared space-separated in a single `port` argument.
type PortInfo struct {
	Port        uint16
	Name        string
	Protocol    string
	NodePort    *int32
	ServiceName string
	ServiceType string
	Ingress     bool
}

// GetName returns the declared name, or a default of "port-N".
func (p PortInfo) GetName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("port-%d", p.Port)
}

// ParsePorts parses the space-separated `port` argument grammar. Colons
// within one port entry separate key=value pairs the way the original does
// ("port=" + entry with ':' replaced by ' ', then a k=v split), except Go's
// strings.Fields already does the splitting work for us.
func ParsePorts(arg string) ([]PortInfo, error) {
	var out []PortInfo
	for _, entry := range strings.Fields(arg) {
		pi := PortInfo{Protocol: "TCP"}

		fields := strings.Split("port="+entry, ":")
		for _, field := range fields {
			k, v, _ := strings.Cut(field, "=")
			switch k {
			case "port":
				n, err := strconv.ParseUint(v, 10, 16)
				if err != nil {
					return nil, fmt.Errorf("invalid port entry %q: %w", entry, err)
				}
				pi.Port = uint16(n)
			case "name":
				pi.Name = v
			case "protocol":
				pi.Protocol = v
			case "nodePort":
				switch v {
				case "false", "null":
					// disabled
				case "":
					zero := int32(0)
					pi.NodePort = &zero
				default:
					n, err := strconv.ParseInt(v, 10, 32)
					if err != nil {
						return nil, fmt.Errorf("invalid nodePort in %q: %w", entry, err)
					}
					n32 := int32(n)
					pi.NodePort = &n32
				}
			case "serviceName":
				pi.ServiceName = v
			case "serviceType":
				pi.ServiceType = v
			case "ingress":
				pi.Ingress = true
			}
		}

		if pi.Port == 0 {
			return nil, fmt.Errorf("port entry %q is missing a port number", entry)
		}
		out = append(out, pi)
	}
	return out, nil
}

// FindPortByName returns the entry whose GetName() matches name.
func FindPortByName(ports []PortInfo, name string) (PortInfo, bool) {
	for _, p := range ports {
		if p.GetName() == name {
			return p, true
		}
	}
	return PortInfo{}, false
}
