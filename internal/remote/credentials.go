// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"net"
	"strconv"
	"strings"

	"github.com/ollamamobile/ollama-mobile/internal/prefs"
)

// Preference keys of the SSH store.
const (
	KeyHostname = "hostname"
	KeyUsername = "username"
	KeyPassword = "password"
)

// Credentials is the single saved SSH login.
type Credentials struct {
	Hostname string
	Username string
	Password string
}

// Complete reports whether every field is set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Hostname) != "" &&
		strings.TrimSpace(c.Username) != "" &&
		c.Password != ""
}

// Address returns host:port. A port already present in Hostname wins over
// defaultPort.
func (c Credentials) Address(defaultPort int) string {
	host := strings.TrimSpace(c.Hostname)
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(defaultPort))
}

// CredentialStore keeps the credentials in the ssh_prefs store.
// The password is stored in plain text, protected only by file mode 0600.
type CredentialStore struct {
	store *prefs.Store
}

// NewCredentialStore opens the SSH preference store in dir.
func NewCredentialStore(dir string) *CredentialStore {
	return &CredentialStore{store: prefs.Open(dir, prefs.SSHStore)}
}

// Store returns the underlying preference store.
func (s *CredentialStore) Store() *prefs.Store { return s.store }

// Save replaces the saved credentials.
func (s *CredentialStore) Save(c Credentials) error {
	return s.store.Put(map[string]interface{}{
		KeyHostname: strings.TrimSpace(c.Hostname),
		KeyUsername: strings.TrimSpace(c.Username),
		KeyPassword: c.Password,
	})
}

// Load returns the saved credentials. ok is false when any field is missing.
func (s *CredentialStore) Load() (c Credentials, ok bool) {
	c = Credentials{
		Hostname: s.store.GetString(KeyHostname, ""),
		Username: s.store.GetString(KeyUsername, ""),
		Password: s.store.GetString(KeyPassword, ""),
	}
	if !c.Complete() {
		return Credentials{}, false
	}
	return c, true
}
