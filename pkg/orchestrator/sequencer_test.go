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

package orchestrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerRunsFirstEnqueuedImmediately(t *testing.T) {
	s := NewSequencer()
	ran := false
	s.Enqueue("pg", func() { ran = true })
	assert.True(t, ran)
}

func TestSequencerHoldsSecondUntilFirstReleases(t *testing.T) {
	s := NewSequencer()

	var mu sync.Mutex
	var order []int

	s.Enqueue("pg", func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		// first holder has not released yet
	})
	s.Enqueue("pg", func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})

	mu.Lock()
	got := append([]int(nil), order...)
	mu.Unlock()
	assert.Equal(t, []int{1}, got, "second continuation must not run before Release")

	s.Release("pg")

	mu.Lock()
	got = append([]int(nil), order...)
	mu.Unlock()
	assert.Equal(t, []int{1, 2}, got)
}

func TestSequencerTracksEachNameIndependently(t *testing.T) {
	s := NewSequencer()
	var a, b bool
	s.Enqueue("pg", func() { a = true })
	s.Enqueue("redis", func() { b = true })
	assert.True(t, a)
	assert.True(t, b)
}
