// Package awskms provides a SecretStore that unwraps data keys with AWS KMS.
//
// The payload key is kept as KMS ciphertext, the output of GenerateDataKey or
// Encrypt. The endpoint is the KMS key ARN or alias and the secret name is the
// base64 ciphertext blob. The key is unwrapped with KMS Decrypt on first use.
//
// Usage:
//
//	cfg, err := awsconfig.LoadDefaultConfig(ctx)
//	kmsClient := kms.NewFromConfig(cfg)
//
//	provider := awskms.NewKeyProvider(kmsClient, "alias/payload-key", wrappedKey,
//	    awskms.WithEncryptionContext(map[string]string{"service": "orders"}),
//	)
package awskms

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	crypto "github.com/rbaliyan/payload-crypto"
)

// Client is the subset of the AWS KMS API used by this store.
type Client interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Option configures a Store.
type Option func(*Store)

// WithEncryptionContext sets the encryption context the data key was wrapped with.
func WithEncryptionContext(ec map[string]string) Option {
	return func(s *Store) {
		s.encryptionContext = ec
	}
}

// WithKeyProviderOptions passes options through to the SecretKeyProvider
// built by NewKeyProvider.
func WithKeyProviderOptions(opts ...crypto.SecretOption) Option {
	return func(s *Store) {
		s.providerOpts = append(s.providerOpts, opts...)
	}
}

// Store unwraps KMS-encrypted data keys. It is safe for concurrent use if the
// client is; the SDK client is.
type Store struct {
	client            Client
	encryptionContext map[string]string
	providerOpts      []crypto.SecretOption
}

// NewStore creates a store that decrypts with client.
func NewStore(client Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewKeyProvider returns a key provider for a data key wrapped under kmsKeyID.
// KMS is not called until the first Key call.
func NewKeyProvider(client Client, kmsKeyID string, wrappedKey []byte, opts ...Option) *crypto.SecretKeyProvider {
	s := NewStore(client, opts...)
	var name string
	if len(wrappedKey) > 0 {
		name = base64.StdEncoding.EncodeToString(wrappedKey)
	}
	return crypto.NewSecretKeyProvider(s, kmsKeyID, name, s.providerOpts...)
}

// GetSecret decrypts the base64 ciphertext blob under kmsKeyID and returns
// the plaintext data key, base64 encoded.
func (s *Store) GetSecret(ctx context.Context, kmsKeyID, blob string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("awskms: client is nil")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("awskms: wrapped key is not valid base64: %w", err)
	}

	input := &kms.DecryptInput{
		CiphertextBlob:    ciphertext,
		EncryptionContext: s.encryptionContext,
	}
	if kmsKeyID != "" {
		input.KeyId = &kmsKeyID
	}

	out, err := s.client.Decrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("awskms: failed to decrypt data key with %s: %w", kmsKeyID, err)
	}
	defer clear(out.Plaintext)

	return base64.StdEncoding.EncodeToString(out.Plaintext), nil
}

// Compile-time interface check.
var _ crypto.SecretStore = (*Store)(nil)
