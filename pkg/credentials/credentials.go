// Package credentials decides whether a usable API key is selected and
// lets the user pick another one after quota or key errors.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

var ErrNoKeySource = errors.New("no key source configured")

// Provider is the credential gate consulted before user-initiated loads
type Provider interface {
	// HasSelectedAPIKey reports whether a key is currently selected
	HasSelectedAPIKey(ctx context.Context) (bool, error)
	// OpenSelectKey runs the selection flow; success is not implied
	OpenSelectKey(ctx context.Context) error
	// APIKey returns the key for outgoing calls
	APIKey() string
}

// EnvProvider serves a key fixed at startup. Selection cannot change it.
type EnvProvider struct {
	key string
}

func NewEnvProvider(key string) *EnvProvider {
	return &EnvProvider{key: strings.TrimSpace(key)}
}

func (p *EnvProvider) HasSelectedAPIKey(ctx context.Context) (bool, error) {
	return p.key != "", nil
}

func (p *EnvProvider) OpenSelectKey(ctx context.Context) error {
	return nil
}

func (p *EnvProvider) APIKey() string {
	return p.key
}

// FileProvider reads the key from a file. Selecting a key re-reads the file,
// so an operator can rotate keys without restarting.
type FileProvider struct {
	path string

	mu  sync.RWMutex
	key string
}

// NewFileProvider loads the key at path. A missing file is not an error;
// HasSelectedAPIKey will report false until a key is written.
func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		return nil, ErrNoKeySource
	}
	p := &FileProvider{path: path}
	if err := p.reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.mu.Lock()
		p.key = ""
		p.mu.Unlock()
		return fmt.Errorf("failed to read key file: %w", err)
	}

	p.mu.Lock()
	p.key = strings.TrimSpace(string(data))
	p.mu.Unlock()
	return nil
}

func (p *FileProvider) HasSelectedAPIKey(ctx context.Context) (bool, error) {
	return p.APIKey() != "", nil
}

func (p *FileProvider) OpenSelectKey(ctx context.Context) error {
	return p.reload()
}

func (p *FileProvider) APIKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.key
}

// FromConfig prefers the key file when one is configured
func FromConfig(apiKey, apiKeyFile string) (Provider, error) {
	if apiKeyFile != "" {
		return NewFileProvider(apiKeyFile)
	}
	return NewEnvProvider(apiKey), nil
}
