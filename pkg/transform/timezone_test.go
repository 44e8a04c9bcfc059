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

package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurchaseDate_AcceptedFormats(t *testing.T) {
	cases := []string{
		"2024-03-04T10:00:00Z",
		"2024-03-04T10:00:00.123Z",
		"2024-03-04T10:00:00",
		"2024-03-04 10:00:00",
	}
	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			_, ok := ParsePurchaseDate(raw)
			assert.True(t, ok, "expected %q to parse", raw)
		})
	}
}

func TestParsePurchaseDate_Unparseable(t *testing.T) {
	_, ok := ParsePurchaseDate("not-a-date")
	assert.False(t, ok)
}

func TestConvertTimezone_NeverAheadOfSource(t *testing.T) {
	// Across a full year spanning both European DST boundaries, the
	// converted instant must never be ahead of the source UTC instant.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, code := range []string{"UK", "DE", "US"} {
		for d := 0; d < 366; d++ {
			src := start.AddDate(0, 0, d)
			converted, ok := ConvertTimezone(src, code)
			require.True(t, ok)
			assert.False(t, converted.After(src),
				"marketplace=%s day=%s converted=%s should not be ahead of the source instant", code, src, converted)
		}
	}
}

func TestConvertTimezone_UK_DSTSpringForward(t *testing.T) {
	// 2024-03-31 is the last Sunday of March: BST begins at 01:00 UTC.
	before := time.Date(2024, 3, 31, 0, 30, 0, 0, time.UTC)
	after := time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC)

	beforeLocal, ok := ConvertTimezone(before, "UK")
	require.True(t, ok)
	afterLocal, ok := ConvertTimezone(after, "UK")
	require.True(t, ok)

	assert.Equal(t, 0, beforeLocal.Hour()*60+beforeLocal.Minute()-30) // still GMT
	assert.Equal(t, 3, afterLocal.Hour())                              // BST = UTC+1
}

func TestConvertTimezone_UnknownMarketplace(t *testing.T) {
	_, ok := ConvertTimezone(time.Now(), "ZZ")
	assert.False(t, ok)
}
