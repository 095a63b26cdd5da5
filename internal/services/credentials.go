package services

import (
	"errors"
	"strings"
	"sync"
)

var ErrEmptyCredential = errors.New("api key cannot be empty")

// Credentials holds the generation API key. It is safe for concurrent use.
type Credentials struct {
	mu     sync.RWMutex
	apiKey string
}

// NewCredentials creates a provider seeded with apiKey, which may be empty.
func NewCredentials(apiKey string) *Credentials {
	return &Credentials{apiKey: strings.TrimSpace(apiKey)}
}

// Set stores a new API key.
func (c *Credentials) Set(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyCredential
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
	return nil
}

// Clear forgets the API key, returning the court to static content.
func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = ""
}

// Has reports whether an API key is configured.
func (c *Credentials) Has() bool {
	_, ok := c.Get()
	return ok
}

// Get returns the API key and whether one is configured.
func (c *Credentials) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.apiKey != ""
}
