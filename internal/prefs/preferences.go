// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

// Store names and keys shared with the files users may edit by hand.
const (
	AppStore         = "ollama_mobile"
	FirstLaunchStore = "first_launch_prefs"
	SSHStore         = "ssh_prefs"

	KeyBaseURL       = "base_url"
	KeyIsFirstLaunch = "is_first_launch"
)

// Preferences holds the persisted server base URL.
type Preferences struct {
	store *Store
}

// NewPreferences opens the base-URL preference in dir.
func NewPreferences(dir string) *Preferences {
	return &Preferences{store: Open(dir, AppStore)}
}

// BaseURL returns the saved base URL, or def when none has been saved.
func (p *Preferences) BaseURL(def string) string {
	return p.store.GetString(KeyBaseURL, def)
}

// SetBaseURL persists url exactly as given.
func (p *Preferences) SetBaseURL(url string) error {
	return p.store.PutString(KeyBaseURL, url)
}

// Store exposes the underlying store (for watching and diagnostics).
func (p *Preferences) Store() *Store { return p.store }

// FirstLaunch tracks whether the setup guide has been completed.
type FirstLaunch struct {
	store *Store
}

// NewFirstLaunch opens the first-launch flag in dir.
func NewFirstLaunch(dir string) *FirstLaunch {
	return &FirstLaunch{store: Open(dir, FirstLaunchStore)}
}

// IsFirstLaunch reports true until SetFirstLaunchCompleted has been called.
func (f *FirstLaunch) IsFirstLaunch() bool {
	return f.store.GetBool(KeyIsFirstLaunch, true)
}

// SetFirstLaunchCompleted records that the guide was shown.
func (f *FirstLaunch) SetFirstLaunchCompleted() error {
	return f.store.PutBool(KeyIsFirstLaunch, false)
}
