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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandSimpleVariable(t *testing.T) {
	out, err := Expand("cluster=${clusterId}", Variables{"clusterId": "3"})
	assert.NoError(t, err)
	assert.Equal(t, "cluster=3", out)
}

func TestExpandMissingVariableIsEmpty(t *testing.T) {
	out, err := Expand("x=${missing}y", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "x=y", out)
}

func TestExpandDefaultValueUsedWhenUnset(t *testing.T) {
	out, err := Expand("replicas=${replicas,3}", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "replicas=3", out)
}

func TestExpandDefaultValueIgnoredWhenSet(t *testing.T) {
	out, err := Expand("replicas=${replicas,3}", Variables{"replicas": "7"})
	assert.NoError(t, err)
	assert.Equal(t, "replicas=7", out)
}

func TestExpandNestedDefaultValue(t *testing.T) {
	out, err := Expand("${host,${defaultHost,localhost}}", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "localhost", out)
}

func TestExpandEscapedDollarIsLiteral(t *testing.T) {
	out, err := Expand(`price: \$5`, Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "price: $5", out)
}

func TestExpandBackslashOtherwisePreserved(t *testing.T) {
	out, err := Expand(`path: C:\temp`, Variables{})
	assert.NoError(t, err)
	assert.Equal(t, `path: C:\temp`, out)
}

func TestExpandEnvFallbackInDefault(t *testing.T) {
	t.Setenv("K8DEP_TEST_VAR", "from-env")
	out, err := Expand("x=${missing,$K8DEP_TEST_VAR}", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "x=from-env", out)
}

func TestExpandEvalFunctionTrue(t *testing.T) {
	out, err := Expand("ok=$eval(1+1==2)", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "ok=true", out)
}

func TestExpandEvalFunctionFalse(t *testing.T) {
	out, err := Expand("ok=$eval(1==2)", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "ok=false", out)
}

func TestExpandIntexprFunction(t *testing.T) {
	out, err := Expand("n=$intexpr(7/2)", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "n=3", out)
}

func TestExpandExprFunction(t *testing.T) {
	out, err := Expand("n=$expr(2+3)", Variables{})
	assert.NoError(t, err)
	assert.Equal(t, "n=5", out)
}

func TestExpandFunctionArgIsVariableExpandedFirst(t *testing.T) {
	out, err := Expand("n=$expr(${base}+1)", Variables{"base": "4"})
	assert.NoError(t, err)
	assert.Equal(t, "n=5", out)
}

func TestExpandUnterminatedBraceErrors(t *testing.T) {
	_, err := Expand("x=${unterminated", Variables{})
	assert.Error(t, err)
}
