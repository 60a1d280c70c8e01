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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskReadyWithNoDependencies(t *testing.T) {
	tk := &Task{State: StateBlocked}
	assert.True(t, tk.Ready())
	assert.False(t, tk.DependencyFailed())
}

func TestTaskReadyWaitsForAllDependencies(t *testing.T) {
	dep1 := &Task{State: StateDone}
	dep2 := &Task{State: StateExecuting}
	tk := &Task{State: StateBlocked, DependsOn: []*Task{dep1, dep2}}
	assert.False(t, tk.Ready())

	dep2.State = StateDone
	assert.True(t, tk.Ready())
}

func TestTaskDependencyFailedPropagates(t *testing.T) {
	dep := &Task{State: StateFailed}
	tk := &Task{State: StateBlocked, DependsOn: []*Task{dep}}
	assert.True(t, tk.DependencyFailed())
}

func TestTaskReevaluateTransitions(t *testing.T) {
	dep := &Task{State: StateDone}
	tk := &Task{State: StatePre, DependsOn: []*Task{dep}}

	changed := tk.Reevaluate()
	assert.True(t, changed)
	assert.Equal(t, StateBlocked, tk.State)

	changed = tk.Reevaluate()
	assert.True(t, changed)
	assert.Equal(t, StateReady, tk.State)

	changed = tk.Reevaluate()
	assert.False(t, changed)
}

func TestTaskReevaluateEscalatesOnDependencyFailure(t *testing.T) {
	dep := &Task{State: StateFailed}
	tk := &Task{State: StateBlocked, DependsOn: []*Task{dep}}

	assert.True(t, tk.Reevaluate())
	assert.Equal(t, StateDependencyFailed, tk.State)
}

func TestStateIsTerminal(t *testing.T) {
	assert.True(t, StateDone.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.True(t, StateAborted.IsTerminal())
	assert.True(t, StateDependencyFailed.IsTerminal())
	assert.False(t, StateReady.IsTerminal())
	assert.False(t, StateBlocked.IsTerminal())
}
