// Package vault provides a SecretStore backed by a HashiCorp Vault KV v2 secrets engine.
//
// The endpoint is the Vault address and the secret name is the KV path under the
// mount. The key is read from one field of the secret and must be base64 encoded.
// Authentication uses the ambient Vault configuration (VAULT_TOKEN and friends).
//
// Usage:
//
//	provider := vault.NewKeyProvider("https://vault.example.com:8200", "apps/payments/payload-key",
//	    vault.WithMount("kv"),
//	)
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
	crypto "github.com/rbaliyan/payload-crypto"
)

const (
	defaultMount = "secret"
	defaultField = "value"
)

// Client abstracts the Vault KV v2 read operation.
// This allows injecting a mock for testing or wrapping any Vault client library.
type Client interface {
	// Get reads the latest version of the secret at path.
	Get(ctx context.Context, path string) (*api.KVSecret, error)
}

// ClientFactory creates a Client for a Vault address and KV mount.
type ClientFactory func(address, mount string) (Client, error)

// Option configures a Store.
type Option func(*Store)

// WithMount sets the KV v2 mount path. Defaults to "secret".
func WithMount(mount string) Option {
	return func(s *Store) {
		s.mount = mount
	}
}

// WithField sets the secret field holding the key. Defaults to "value".
func WithField(field string) Option {
	return func(s *Store) {
		s.field = field
	}
}

// WithClientFactory replaces the Vault API client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Store) {
		if f != nil {
			s.newClient = f
		}
	}
}

// WithKeyProviderOptions passes options through to the SecretKeyProvider
// built by NewKeyProvider.
func WithKeyProviderOptions(opts ...crypto.SecretOption) Option {
	return func(s *Store) {
		s.providerOpts = append(s.providerOpts, opts...)
	}
}

// Store reads secrets from Vault KV v2. It is safe for concurrent use.
type Store struct {
	mount        string
	field        string
	newClient    ClientFactory
	providerOpts []crypto.SecretOption

	mu      sync.Mutex
	clients map[string]Client
}

// NewStore creates a Vault KV store. No network call is made until GetSecret.
func NewStore(opts ...Option) *Store {
	s := &Store{
		mount:     defaultMount,
		field:     defaultField,
		newClient: defaultClientFactory,
		clients:   make(map[string]Client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewKeyProvider returns a key provider for the secret at path on the Vault server at address.
func NewKeyProvider(address, path string, opts ...Option) *crypto.SecretKeyProvider {
	s := NewStore(opts...)
	return crypto.NewSecretKeyProvider(s, address, path, s.providerOpts...)
}

// GetSecret returns the configured field of the secret at path.
func (s *Store) GetSecret(ctx context.Context, address, path string) (string, error) {
	client, err := s.client(address)
	if err != nil {
		return "", err
	}

	secret, err := client.Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("vault: failed to read %s/%s: %w", s.mount, path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: secret %s/%s has no data", s.mount, path)
	}

	raw, ok := secret.Data[s.field]
	if !ok {
		return "", fmt.Errorf("vault: secret %s/%s has no field %q", s.mount, path, s.field)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: field %q of %s/%s is %T, want string", s.field, s.mount, path, raw)
	}
	return value, nil
}

func (s *Store) client(address string) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[address]; ok {
		return c, nil
	}
	c, err := s.newClient(address, s.mount)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create client for %s: %w", address, err)
	}
	s.clients[address] = c
	return c, nil
}

func defaultClientFactory(address, mount string) (Client, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, cfg.Error
	}
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return client.KVv2(mount), nil
}

// Compile-time interface check.
var _ crypto.SecretStore = (*Store)(nil)
