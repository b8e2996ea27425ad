// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/prefs"
)

// ErrEmptyBaseURL is returned when a base URL is blank after trimming.
var ErrEmptyBaseURL = errors.New("server URL must not be empty")

// URLStore persists the base URL. *prefs.Preferences implements it.
type URLStore interface {
	BaseURL(def string) string
	SetBaseURL(url string) error
}

var _ URLStore = (*prefs.Preferences)(nil)

// Repository owns the current base URL and builds a fresh ollama.Client for
// every call, so a URL change never reuses a connection to the old server.
//
// A URL change while a request is in flight does not affect that request.
type Repository struct {
	store      URLStore
	defaultURL string
	opts       []ollama.Option

	mu      sync.RWMutex
	baseURL string
}

// New creates a repository seeded from the saved preference, or defaultURL
// when nothing has been saved. opts are applied to every client.
func New(store URLStore, defaultURL string, opts ...ollama.Option) *Repository {
	return &Repository{
		store:      store,
		defaultURL: defaultURL,
		opts:       opts,
		baseURL:    store.BaseURL(defaultURL),
	}
}

// NormalizeBaseURL trims surrounding whitespace and all trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	for strings.HasSuffix(url, "/") {
		url = strings.TrimSpace(strings.TrimSuffix(url, "/"))
	}
	if url == "" {
		return "", ErrEmptyBaseURL
	}
	return url, nil
}

// BaseURL returns the URL new clients will target.
func (r *Repository) BaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseURL
}

// SetBaseURL normalizes raw, persists it and uses it for subsequent calls.
// It returns the value that was stored. Nothing changes on error.
func (r *Repository) SetBaseURL(raw string) (string, error) {
	url, err := NormalizeBaseURL(raw)
	if err != nil {
		return "", err
	}
	if err := r.store.SetBaseURL(url); err != nil {
		return "", fmt.Errorf("save server URL: %w", err)
	}

	r.mu.Lock()
	r.baseURL = url
	r.mu.Unlock()

	log.Printf("BASE_URL_SET | url=%s", url)
	return url, nil
}

// Reload re-reads the saved preference. changed reports whether the URL
// differs from the one in use.
func (r *Repository) Reload() (url string, changed bool) {
	url = r.store.BaseURL(r.defaultURL)

	r.mu.Lock()
	changed = url != r.baseURL
	r.baseURL = url
	r.mu.Unlock()

	if changed {
		log.Printf("BASE_URL_RELOADED | url=%s", url)
	}
	return url, changed
}

// Client returns a new client bound to the current base URL.
func (r *Repository) Client() *ollama.Client {
	return ollama.NewClient(r.BaseURL(), r.opts...)
}

// ListModels lists the models on the current server.
func (r *Repository) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return r.Client().ListModels(ctx)
}

// ChatStream streams a chat reply from the current server.
func (r *Repository) ChatStream(ctx context.Context, model string, messages []ollama.Message, onDelta func(string)) error {
	return r.Client().ChatStream(ctx, model, messages, onDelta)
}

// ChatStreamChan is the channel form of ChatStream.
func (r *Repository) ChatStreamChan(ctx context.Context, model string, messages []ollama.Message) <-chan ollama.StreamChunk {
	return r.Client().ChatStreamChan(ctx, model, messages)
}

// Ping checks that the current server answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.Client().Ping(ctx)
}

// Pull downloads a model to the current server.
func (r *Repository) Pull(ctx context.Context, model string, onProgress func(ollama.PullProgress)) error {
	return r.Client().Pull(ctx, model, onProgress)
}
