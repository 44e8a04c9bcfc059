// Copyright 2026 Amazon Connector Contributors
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

package spapi

import (
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("orders", BreakerConfig{FailureThreshold: 3, RecoveryTimeout: 50 * time.Millisecond}, logr.Discard())

	failing := func() (interface{}, error) { return nil, errors.New("boom") }

	for i := 0; i < 3; i++ {
		_, err := b.Call(failing)
		assert.Error(t, err)
	}

	assert.Equal(t, "open", b.State())

	_, err := b.Call(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	b := NewBreaker("orders", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond}, logr.Discard())

	_, err := b.Call(func() (interface{}, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, "open", b.State())

	time.Sleep(20 * time.Millisecond)

	result, err := b.Call(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", b.State())
}
