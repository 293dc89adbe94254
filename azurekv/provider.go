// Package azurekv provides a SecretStore backed by Azure Key Vault secrets.
//
// The payload key is stored as a base64 secret value. Credentials come from the
// ambient environment through azidentity's default credential chain (managed
// identity, workload identity, Azure CLI, environment variables) unless one is
// supplied with WithCredential.
//
// Usage:
//
//	provider := azurekv.NewKeyProvider("https://my-vault.vault.azure.net/", "payload-key")
//	codec, err := crypto.NewCodec(ctx, crypto.DefaultConverter(), provider)
package azurekv

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	crypto "github.com/rbaliyan/payload-crypto"
)

// Client is the subset of the Azure Key Vault secrets API used by this store.
type Client interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// ClientFactory creates a Client for a vault URL.
type ClientFactory func(vaultURL string, cred azcore.TokenCredential) (Client, error)

// Option configures a Store.
type Option func(*Store)

// WithCredential sets the credential used to authenticate to Key Vault.
func WithCredential(cred azcore.TokenCredential) Option {
	return func(s *Store) {
		s.cred = cred
	}
}

// WithSecretVersion pins the secret version. The default "" reads the current version.
func WithSecretVersion(version string) Option {
	return func(s *Store) {
		s.version = version
	}
}

// WithClientFactory replaces the azsecrets client constructor.
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

// Store reads secrets from Azure Key Vault. It is safe for concurrent use.
type Store struct {
	version      string
	newClient    ClientFactory
	providerOpts []crypto.SecretOption

	mu      sync.Mutex
	cred    azcore.TokenCredential
	clients map[string]Client
}

// NewStore creates a Key Vault secret store. No network call is made until GetSecret.
func NewStore(opts ...Option) *Store {
	s := &Store{
		newClient: defaultClientFactory,
		clients:   make(map[string]Client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewKeyProvider returns a key provider for the named secret in the vault at vaultURL.
func NewKeyProvider(vaultURL, secretName string, opts ...Option) *crypto.SecretKeyProvider {
	s := NewStore(opts...)
	return crypto.NewSecretKeyProvider(s, vaultURL, secretName, s.providerOpts...)
}

// GetSecret returns the value of the named secret in the vault at vaultURL.
func (s *Store) GetSecret(ctx context.Context, vaultURL, name string) (string, error) {
	client, err := s.client(vaultURL)
	if err != nil {
		return "", err
	}

	resp, err := client.GetSecret(ctx, name, s.version, nil)
	if err != nil {
		return "", fmt.Errorf("azurekv: failed to get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("azurekv: secret %q has no value", name)
	}
	return *resp.Value, nil
}

func (s *Store) client(vaultURL string) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[vaultURL]; ok {
		return c, nil
	}

	if s.cred == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azurekv: failed to create credential: %w", err)
		}
		s.cred = cred
	}

	c, err := s.newClient(vaultURL, s.cred)
	if err != nil {
		return nil, fmt.Errorf("azurekv: failed to create client for %s: %w", vaultURL, err)
	}
	s.clients[vaultURL] = c
	return c, nil
}

func defaultClientFactory(vaultURL string, cred azcore.TokenCredential) (Client, error) {
	return azsecrets.NewClient(vaultURL, cred, nil)
}

// Compile-time interface check.
var _ crypto.SecretStore = (*Store)(nil)
