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

package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierWaitBlocksUntilSignal(t *testing.T) {
	b := NewBarrier()
	assert.False(t, b.Signalled())

	done := make(chan error, 1)
	go func() {
		done <- b.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Signal was called")
	case <-time.After(20 * time.Millisecond):
	}

	b.Signal()
	require.NoError(t, <-done)
	assert.True(t, b.Signalled())
}

func TestBarrierSignalIsIdempotent(t *testing.T) {
	b := NewBarrier()
	b.Signal()
	assert.NotPanics(t, func() { b.Signal() })
	assert.True(t, b.Signalled())
}

func TestBarrierWaitReturnsContextError(t *testing.T) {
	b := NewBarrier()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
