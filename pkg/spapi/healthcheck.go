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
	"fmt"
	"net/http"
)

// HealthChecker reports whether each credential group's token manager can
// currently produce a usable access token, without making an SP-API call
// (refresh happens lazily on the request path; this check only verifies the
// credentials file parsed and a refresh token is present).
type HealthChecker struct {
	managers map[string]*TokenManager
}

// NewHealthChecker builds a checker over one TokenManager per credential group.
func NewHealthChecker(managers map[string]*TokenManager) *HealthChecker {
	return &HealthChecker{managers: managers}
}

// Name identifies this checker for the process health-probe server.
func (h *HealthChecker) Name() string {
	return "spapi-credentials"
}

// Check implements the handler signature used by the health-probe server
// (see cmd/connector/main.go). It is a readiness check: transient SP-API
// outages should not fail liveness, only readiness.
func (h *HealthChecker) Check(req *http.Request) error {
	var failed []string
	for group, tm := range h.managers {
		tm.mu.Lock()
		hasRefreshToken := tm.creds.RefreshToken != ""
		tm.mu.Unlock()
		if !hasRefreshToken {
			failed = append(failed, group)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d/%d credential groups missing a refresh token: %v", len(failed), len(h.managers), failed)
	}
	return nil
}
