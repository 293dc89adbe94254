// Package gcpkms provides a SecretStore that unwraps data keys with Google Cloud KMS.
//
// The endpoint is the full CryptoKey resource name and the secret name is the
// base64 ciphertext produced by CryptoKeys.Encrypt. The key is unwrapped with
// the Decrypt RPC on first use.
//
// Usage:
//
//	client, err := kms.NewKeyManagementClient(ctx)
//	provider := gcpkms.NewKeyProvider(client,
//	    "projects/p/locations/global/keyRings/payloads/cryptoKeys/payload-key", wrappedKey)
package gcpkms

import (
	"context"
	"encoding/base64"
	"fmt"

	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	crypto "github.com/rbaliyan/payload-crypto"
)

// Client is the subset of the GCP Cloud KMS API used by this store.
type Client interface {
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error)
}

// Option configures a Store.
type Option func(*Store)

// WithAdditionalAuthenticatedData sets the AAD the data key was encrypted with.
func WithAdditionalAuthenticatedData(aad []byte) Option {
	return func(s *Store) {
		s.aad = aad
	}
}

// WithKeyProviderOptions passes options through to the SecretKeyProvider
// built by NewKeyProvider.
func WithKeyProviderOptions(opts ...crypto.SecretOption) Option {
	return func(s *Store) {
		s.providerOpts = append(s.providerOpts, opts...)
	}
}

// Store unwraps Cloud KMS encrypted data keys.
type Store struct {
	client       Client
	aad          []byte
	providerOpts []crypto.SecretOption
}

// NewStore creates a store that decrypts with client.
func NewStore(client Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewKeyProvider returns a key provider for a data key wrapped under the
// CryptoKey resourceName. Cloud KMS is not called until the first Key call.
func NewKeyProvider(client Client, resourceName string, wrappedKey []byte, opts ...Option) *crypto.SecretKeyProvider {
	s := NewStore(client, opts...)
	var name string
	if len(wrappedKey) > 0 {
		name = base64.StdEncoding.EncodeToString(wrappedKey)
	}
	return crypto.NewSecretKeyProvider(s, resourceName, name, s.providerOpts...)
}

// GetSecret decrypts the base64 ciphertext under resourceName and returns the
// plaintext data key, base64 encoded.
func (s *Store) GetSecret(ctx context.Context, resourceName, blob string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("gcpkms: client is nil")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("gcpkms: wrapped key is not valid base64: %w", err)
	}

	resp, err := s.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:                        resourceName,
		Ciphertext:                  ciphertext,
		AdditionalAuthenticatedData: s.aad,
	})
	if err != nil {
		return "", fmt.Errorf("gcpkms: failed to decrypt data key with %s: %w", resourceName, err)
	}
	plaintext := resp.GetPlaintext()
	defer clear(plaintext)

	return base64.StdEncoding.EncodeToString(plaintext), nil
}

// Compile-time interface check.
var _ crypto.SecretStore = (*Store)(nil)
