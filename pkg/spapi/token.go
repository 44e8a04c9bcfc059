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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"
)

// refreshCooldown is the window during which a second goroutine arriving at
// the refresh mutex will simply re-read the just-persisted token instead of
// issuing a second LWA call.
const refreshCooldown = 30 * time.Second

// Credentials is the persisted shape of one LWA application's token state.
// AccessToken and ExpiresAt always move together: both are assigned in the
// same refresh step while TokenManager's mutex is held.
type Credentials struct {
	AppID         string    `json:"app_id"`
	ClientSecret  string    `json:"client_secret"`
	RefreshToken  string    `json:"refresh_token"`
	AccessToken   string    `json:"access_token"`
	ExpiresAt     time.Time `json:"expires_at"`
	ExpiresIn     int       `json:"expires_in"`
	TokenType     string    `json:"token_type"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastRefreshed time.Time `json:"last_refreshed"`
}

// Expired reports whether the access token is expired or about to expire.
func (c Credentials) Expired() bool {
	return c.AccessToken == "" || time.Now().After(c.ExpiresAt.Add(-10*time.Second))
}

// TokenManager owns one credential group's LWA application and performs
// synchronized, cooldown-protected token refresh per spec §4.3.
//
// A process-wide mutex guards the credentials; AccessToken, Refresh and
// HealthChecker.Check all acquire it. Refresh never touches the SP-API rate limiters —
// token minting is exempt from the orders/order-items buckets entirely.
type TokenManager struct {
	mu   sync.Mutex
	path string
	log  logr.Logger

	oauthCfg oauth2.Config

	creds        Credentials
	lastRefresh  time.Time
	hasRefreshed bool
}

// NewTokenManager loads (or seeds) the persisted credentials file for one
// credential group and returns a manager ready to mint/refresh tokens.
func NewTokenManager(path, appID, clientSecret, refreshToken, tokenURL string, log logr.Logger) (*TokenManager, error) {
	tm := &TokenManager{
		path: path,
		log:  log.WithName("token-manager"),
		oauthCfg: oauth2.Config{
			ClientID:     appID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
	}

	if existing, err := loadCredentials(path); err == nil {
		tm.creds = existing
	} else {
		tm.creds = Credentials{
			AppID:        appID,
			ClientSecret: clientSecret,
			RefreshToken: refreshToken,
			ConnectedAt:  time.Now().UTC(),
		}
	}

	return tm, nil
}

func loadCredentials(path string) (Credentials, error) {
	var c Credentials
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// persistCredentials writes the credentials file atomically: write to a temp file in
// the same directory, then rename over the target.
func persistCredentials(path string, c Credentials) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credentials file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename credentials file: %w", err)
	}
	return nil
}

// AccessToken returns the current access token, refreshing first if it is
// expired or missing.
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.creds.Expired() {
		return tm.creds.AccessToken, nil
	}
	if err := tm.refreshLocked(ctx); err != nil {
		return "", err
	}
	return tm.creds.AccessToken, nil
}

// Refresh forces a token refresh, subject to the cooldown: callers that pile
// up during the cooldown window simply observe the freshly persisted token
// rather than issuing a second LWA request.
func (tm *TokenManager) Refresh(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.refreshLocked(ctx)
}

func (tm *TokenManager) refreshLocked(ctx context.Context) error {
	if tm.hasRefreshed && time.Since(tm.lastRefresh) < refreshCooldown {
		if fresh, err := loadCredentials(tm.path); err == nil && !fresh.Expired() {
			tm.log.V(1).Info("refresh suppressed by cooldown, using freshly persisted token")
			tm.creds = fresh
			return nil
		}
	}

	// Re-read persisted credentials first: another process/instance may have
	// already refreshed since we last looked. A persisted token identical to
	// the one in memory is the token being replaced, so it is not reused.
	if fresh, err := loadCredentials(tm.path); err == nil && !fresh.Expired() && fresh.AccessToken != tm.creds.AccessToken {
		tm.creds = fresh
		tm.lastRefresh = time.Now()
		tm.hasRefreshed = true
		return nil
	}

	tm.log.Info("refreshing LWA access token")

	token, err := tm.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tm.creds.RefreshToken}).Token()
	if err != nil {
		return newAPIError("token_refresh", KindAuthFailed, 0, 0, err)
	}

	now := time.Now().UTC()
	tm.creds.AccessToken = token.AccessToken
	tm.creds.ExpiresAt = token.Expiry
	tm.creds.TokenType = token.TokenType
	tm.creds.LastRefreshed = now
	if !token.Expiry.IsZero() {
		tm.creds.ExpiresIn = int(time.Until(token.Expiry).Seconds())
	}

	if err := persistCredentials(tm.path, tm.creds); err != nil {
		tm.log.Error(err, "failed to persist refreshed credentials")
		// Keep the in-memory token even if persistence failed; the next
		// refresh attempt will simply re-mint.
	}

	tm.lastRefresh = now
	tm.hasRefreshed = true
	return nil
}
