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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortsSingleEntry(t *testing.T) {
	ports, err := ParsePorts("80")
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, uint16(80), ports[0].Port)
	assert.Equal(t, "port-80", ports[0].GetName())
	assert.Equal(t, "TCP", ports[0].Protocol)
}

func TestParsePortsWithNameAndProtocol(t *testing.T) {
	ports, err := ParsePorts("8080:name=http:protocol=TCP")
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "http", ports[0].GetName())
	assert.Equal(t, "TCP", ports[0].Protocol)
}

func TestParsePortsWithNodePort(t *testing.T) {
	ports, err := ParsePorts("30080:nodePort=31000")
	require.NoError(t, err)
	require.Len(t, ports, 1)
	require.NotNil(t, ports[0].NodePort)
	assert.EqualValues(t, 31000, *ports[0].NodePort)
}

func TestParsePortsNodePortDisabled(t *testing.T) {
	ports, err := ParsePorts("80:nodePort=false")
	require.NoError(t, err)
	assert.Nil(t, ports[0].NodePort)
}

func TestParsePortsMultipleEntries(t *testing.T) {
	ports, err := ParsePorts("80:name=http 443:name=https:ingress")
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "http", ports[0].GetName())
	assert.False(t, ports[0].Ingress)
	assert.Equal(t, "https", ports[1].GetName())
	assert.True(t, ports[1].Ingress)
}

func TestParsePortsMissingNumberErrors(t *testing.T) {
	_, err := ParsePorts("name=http")
	assert.Error(t, err)
}

func TestFindPortByName(t *testing.T) {
	ports, err := ParsePorts("80:name=http")
	require.NoError(t, err)
	p, ok := FindPortByName(ports, "http")
	assert.True(t, ok)
	assert.Equal(t, uint16(80), p.Port)

	_, ok = FindPortByName(ports, "missing")
	assert.False(t, ok)
}
