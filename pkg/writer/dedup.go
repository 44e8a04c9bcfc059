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

// dedupByKey drops duplicates on the natural key, keeping the first
// occurrence, per spec §4.6 step 2 (intra-batch dedup).
func dedupByKey[T any](records []T, keyFn func(T) string) []T {
	seen := make(map[string]struct{}, len(records))
	out := make([]T, 0, len(records))

	for _, r := range records {
		k := keyFn(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	return out
}

// filterOutKeys drops any record whose key is present in existing, per spec
// §4.6 step 3 (inter-batch dedup against already-persisted rows).
func filterOutKeys[T any](records []T, keyFn func(T) string, existing map[string]struct{}) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if _, ok := existing[keyFn(r)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}
