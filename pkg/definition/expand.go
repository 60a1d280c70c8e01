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
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// Variables is the flat variable namespace (clusterId, clusterIp,
// namespace, CLI -v declarations, ...) used to resolve ${name[,default]}
// tokens.
type Variables map[string]string

// scanState is the macro-expansion state machine, a direct port of the
// original's expandVariables character-at-a-time scanner.
type scanState int

const (
	stateCopy scanState = iota
	stateBackslash
	stateDollar
	stateScanName
	stateScanDefaultValue
	stateScanFunctionName
	stateScanFunctionArg
)

// Expand performs one pass of ${name[,default]} and name(arg) macro
// expansion over text. $ and \$ are escapes: \$ copies a literal $ without
// entering macro scanning, and \<anything else> copies both characters
// verbatim. Default values and function arguments are expanded themselves
// before use, so the innermost nested macro resolves first.
func Expand(text string, vars Variables) (string, error) {
	var (
		expanded strings.Builder
		state    = stateCopy

		varName      strings.Builder
		functionName strings.Builder
		functionArg  strings.Builder
		defaultValue *string

		parens int
		braces int
	)

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		advance := true

	again:
		switch state {
		case stateCopy:
			switch ch {
			case '\\':
				state = stateBackslash
			case '$':
				state = stateDollar
			default:
				expanded.WriteRune(ch)
			}

		case stateBackslash:
			if ch != '$' {
				expanded.WriteByte('\\')
			}
			expanded.WriteRune(ch)
			state = stateCopy

		case stateDollar:
			switch {
			case ch == '{':
				state = stateScanName
				varName.Reset()
				defaultValue = nil
			case isAlnum(ch):
				state = stateScanFunctionName
				functionName.Reset()
				functionArg.Reset()
				functionName.WriteRune(ch)
			default:
				expanded.WriteByte('$')
				expanded.WriteRune(ch)
				state = stateCopy
			}

		case stateScanName:
			switch {
			case isAlnum(ch) || ch == '.' || ch == '_' || ch == ':':
				varName.WriteRune(ch)
			case ch == ',':
				dv := ""
				defaultValue = &dv
				state = stateScanDefaultValue
				braces = 1
			case ch == '}':
				if err := commitVar(&expanded, varName.String(), defaultValue, vars); err != nil {
					return "", err
				}
				state = stateCopy
			default:
				return "", fmt.Errorf("error scanning variable name starting with %q", varName.String())
			}

		case stateScanDefaultValue:
			if ch == '{' {
				braces++
			}
			if ch == '}' {
				braces--
				if braces == 0 {
					expandedDefault, err := Expand(*defaultValue, vars)
					if err != nil {
						return "", err
					}
					defaultValue = &expandedDefault
					if err := commitVar(&expanded, varName.String(), defaultValue, vars); err != nil {
						return "", err
					}
					state = stateCopy
					break
				}
			}
			if ch == '"' {
				*defaultValue += "\\"
			}
			*defaultValue += string(ch)

		case stateScanFunctionName:
			switch {
			case isAlnum(ch):
				functionName.WriteRune(ch)
			case ch == '(':
				parens = 1
				state = stateScanFunctionArg
			default:
				expanded.WriteByte('$')
				expanded.WriteString(functionName.String())
				state = stateCopy
				goto again
			}

		case stateScanFunctionArg:
			switch ch {
			case '(':
				parens++
				functionArg.WriteRune(ch)
			case ')':
				parens--
				if parens == 0 {
					expandedArg, err := Expand(functionArg.String(), vars)
					if err != nil {
						return "", err
					}
					result, err := execFunction(functionName.String(), expandedArg)
					if err != nil {
						return "", err
					}
					expanded.WriteString(result)
					state = stateCopy
				} else {
					functionArg.WriteRune(ch)
				}
			default:
				functionArg.WriteRune(ch)
			}
		}

		if advance {
			i++
		}
	}

	switch state {
	case stateCopy:
		// well-formed
	case stateScanFunctionName, stateScanFunctionArg:
		return "", fmt.Errorf("error expanding function macro %q: not terminated with '(...)'", functionName.String())
	default:
		return "", fmt.Errorf("unterminated macro in %q", text)
	}

	return expanded.String(), nil
}

// commitVar resolves a ${name[,default]} token once its closing brace is
// seen. A default value starting with "$" (and not "$(") is treated as the
// name of a process environment variable, matching the original.
func commitVar(out *strings.Builder, name string, defaultValue *string, vars Variables) error {
	if defaultValue != nil && len(*defaultValue) > 1 && (*defaultValue)[0] == '$' && (*defaultValue)[1] != '(' {
		if ev, ok := os.LookupEnv((*defaultValue)[1:]); ok {
			*defaultValue = ev
		}
	}

	if v, ok := vars[name]; ok {
		out.WriteString(v)
		return nil
	}
	if defaultValue != nil {
		out.WriteString(*defaultValue)
		return nil
	}
	// Unset, no default: expands to empty, matching the original's getVar.
	return nil
}

func isAlnum(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// execFunction implements the three built-in numeric functions the
// original exposes through the macro grammar: eval (boolean), expr
// (float), intexpr (truncated integer). All three evaluate the same
// numeric-expression language; we use expr-lang/expr rather than a
// hand-rolled evaluator since the grammar has no special requirements
// beyond arithmetic and comparisons over float64 operands.
func execFunction(name, arg string) (string, error) {
	program, err := expr.Compile(arg, expr.AllowUndefinedVariables())
	if err != nil {
		return "", fmt.Errorf("compiling %s(%s): %w", name, arg, err)
	}

	result, err := expr.Run(program, map[string]interface{}{})
	if err != nil {
		return "", fmt.Errorf("evaluating %s(%s): %w", name, arg, err)
	}

	value, err := toFloat(result)
	if err != nil {
		return "", err
	}

	switch name {
	case "eval":
		if int(value) != 0 {
			return "true", nil
		}
		return "false", nil
	case "intexpr":
		return strconv.Itoa(int(value)), nil
	case "expr":
		return strconv.FormatFloat(value, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown macro function %q", name)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expression did not evaluate to a number: %v", v)
	}
}
