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

package writer

import (
	"time"

	"github.com/shopspring/decimal"
)

// coerceNaiveUTC strips any zone offset by normalizing to UTC, per spec
// §4.6 step 4 ("datetimes -> naive UTC; tz-aware -> converted then
// stripped"). The go-mssqldb driver carries time.Time as-is, so "naive" is
// represented here as "always UTC, never a local *time.Location".
func coerceNaiveUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// coerceDateOnly truncates a timestamp to its date component (the calendar
// date in the timestamp's own location), for columns the sink materializes
// as DATE rather than DATETIME.
func coerceDateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// coerceInt64 coerces an int-like quantity column; Go has no NaN int, so
// this only exists to document the column's destination type at the call
// site per spec §4.6 step 4.
func coerceInt64(n int) int64 {
	return int64(n)
}

// coerceFloat64 coerces a decimal column to float64 for the driver, mapping
// a non-finite decimal (which shopspring/decimal cannot itself produce, but
// an upstream NaN-bearing float conversion could) to 0.0.
func coerceFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	if f != f { // NaN
		return 0.0
	}
	return f
}
