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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Expired(t *testing.T) {
	c := Credentials{}
	assert.True(t, c.Expired())

	c = Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, c.Expired())

	c = Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Hour)}
	assert.True(t, c.Expired())
}

func TestTokenManager_LoadsExistingCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	existing := Credentials{
		AppID:        "app-1",
		AccessToken:  "existing-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		RefreshToken: "refresh-1",
	}
	data, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	tm, err := NewTokenManager(path, "app-1", "secret", "refresh-1", "https://api.amazon.com/auth/o2/token", logr.Discard())
	require.NoError(t, err)

	token, err := tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "existing-token", token)
}

func TestPersistCredentials_AtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	c := Credentials{AppID: "app-1", AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, persistCredentials(path, c))

	loaded, err := loadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.AccessToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp file should remain")
}
