// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileReturnsDefaults(t *testing.T) {
	s := Open(t.TempDir(), "nothing")

	assert.Equal(t, "fallback", s.GetString("k", "fallback"))
	assert.True(t, s.GetBool("b", true))
	assert.NoFileExists(t, s.Path(), "reads never create the file")
}

func TestStore_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir, "ssh_prefs")

	require.NoError(t, s.Put(map[string]interface{}{
		"hostname": "pixel.lan",
		"username": "u0_a123",
	}))
	require.NoError(t, s.PutBool("enabled", true))

	// A second handle on the same file sees the writes.
	other := Open(dir, "ssh_prefs")
	assert.Equal(t, "pixel.lan", other.GetString("hostname", ""))
	assert.Equal(t, "u0_a123", other.GetString("username", ""))
	assert.True(t, other.GetBool("enabled", false))
}

func TestStore_FilePermissions(t *testing.T) {
	s := Open(t.TempDir(), "ssh_prefs")
	require.NoError(t, s.PutString("password", "hunter2"))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_WrongTypeReturnsDefault(t *testing.T) {
	s := Open(t.TempDir(), "mixed")
	require.NoError(t, s.PutString("flag", "yes"))

	assert.False(t, s.GetBool("flag", false))
	assert.Equal(t, "d", s.GetString("missing", "d"))
}

func TestStore_CorruptFileIsReplacedOnWrite(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir, AppStore)
	require.NoError(t, os.WriteFile(s.Path(), []byte("this is = = not toml"), 0600))

	assert.Equal(t, "def", s.GetString(KeyBaseURL, "def"))
	require.NoError(t, s.PutString(KeyBaseURL, "http://a:1"))
	assert.Equal(t, "http://a:1", s.GetString(KeyBaseURL, "def"))
}

func TestStore_HandEditedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ollama_mobile.toml"),
		[]byte("base_url = \"http://192.168.1.20:11434\"\n"), 0600))

	p := NewPreferences(dir)
	assert.Equal(t, "http://192.168.1.20:11434", p.BaseURL("http://127.0.0.1:11434"))
}

func TestPreferences_BaseURL(t *testing.T) {
	p := NewPreferences(t.TempDir())

	assert.Equal(t, "http://127.0.0.1:11434", p.BaseURL("http://127.0.0.1:11434"))
	require.NoError(t, p.SetBaseURL("http://10.0.0.2:11434"))
	assert.Equal(t, "http://10.0.0.2:11434", p.BaseURL("http://127.0.0.1:11434"))
}

func TestFirstLaunch(t *testing.T) {
	dir := t.TempDir()
	f := NewFirstLaunch(dir)

	assert.True(t, f.IsFirstLaunch())
	require.NoError(t, f.SetFirstLaunchCompleted())
	assert.False(t, f.IsFirstLaunch())
	assert.False(t, NewFirstLaunch(dir).IsFirstLaunch())
}

func TestWatcher_FiresOnExternalWrite(t *testing.T) {
	dir := t.TempDir()
	p := NewPreferences(dir)
	other := Open(dir, "unrelated")

	w, err := NewWatcher(dir, 30*time.Millisecond)
	require.NoError(t, err)

	fired := make(chan struct{}, 8)
	w.On(p.Store(), func() { fired <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, other.PutString("x", "y"))
	select {
	case <-fired:
		t.Fatal("handler fired for an unrelated store")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, p.SetBaseURL("http://changed:11434"))
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("handler not called after base URL write")
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), 0)
	assert.Error(t, err)
}
