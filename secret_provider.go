package crypto

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const instrumentationName = "github.com/rbaliyan/payload-crypto"

// SecretStore fetches the current value of a named secret from a remote
// secret-management backend. Credentials are the store's concern.
type SecretStore interface {
	GetSecret(ctx context.Context, endpoint, name string) (string, error)
}

// SecretOption configures a SecretKeyProvider.
type SecretOption func(*SecretKeyProvider)

// WithSecretLogger sets the logger used for fetch events. Defaults to slog.Default().
func WithSecretLogger(l *slog.Logger) SecretOption {
	return func(p *SecretKeyProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSecretTracerProvider sets the tracer provider for the fetch span.
// Defaults to the global provider.
func WithSecretTracerProvider(tp trace.TracerProvider) SecretOption {
	return func(p *SecretKeyProvider) {
		if tp != nil {
			p.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// SecretKeyProvider resolves a base64 encoded key from a SecretStore on first
// use and caches it for its own lifetime. Concurrent first callers share a
// single fetch. Failed fetches are not cached.
//
// The cached key is never refreshed: a rotated secret is picked up only by a
// new provider.
type SecretKeyProvider struct {
	store    SecretStore
	endpoint string
	name     string
	logger   *slog.Logger
	tracer   trace.Tracer

	group singleflight.Group

	mu     sync.RWMutex
	cached *memguard.Enclave
}

// NewSecretKeyProvider creates a provider for the named secret at endpoint.
// It does not contact the store; configuration is checked on the first Key call.
func NewSecretKeyProvider(store SecretStore, endpoint, secretName string, opts ...SecretOption) *SecretKeyProvider {
	p := &SecretKeyProvider{
		store:    store,
		endpoint: endpoint,
		name:     secretName,
		logger:   slog.Default(),
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns a copy of the key, fetching it from the store on first use.
func (p *SecretKeyProvider) Key(ctx context.Context) ([]byte, error) {
	if enclave := p.enclave(); enclave != nil {
		return openEnclave(enclave)
	}

	v, err, _ := p.group.Do(p.name, func() (any, error) {
		if enclave := p.enclave(); enclave != nil {
			return enclave, nil
		}
		return p.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return openEnclave(v.(*memguard.Enclave))
}

func (p *SecretKeyProvider) enclave() *memguard.Enclave {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cached
}

func (p *SecretKeyProvider) fetch(ctx context.Context) (_ *memguard.Enclave, err error) {
	if p.endpoint == "" || p.name == "" {
		return nil, fmt.Errorf("%w: secret store endpoint and secret name must be set", ErrConfiguration)
	}
	if p.store == nil {
		return nil, fmt.Errorf("%w: secret store is nil", ErrConfiguration)
	}

	ctx, span := p.tracer.Start(ctx, "SecretKeyProvider.fetch", trace.WithAttributes(
		attribute.String("secret.endpoint", p.endpoint),
		attribute.String("secret.name", p.name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "key fetch failed")
		}
		span.End()
	}()

	value, err := p.store.GetSecret(ctx, p.endpoint, p.name)
	if err != nil {
		return nil, fmt.Errorf("%w: secret %q: %w", ErrKeyAccess, p.name, err)
	}

	key, err := decodeKey(value)
	if err != nil {
		return nil, fmt.Errorf("secret %q: %w", p.name, err)
	}
	if err := validateKeySize(key); err != nil {
		clear(key)
		return nil, fmt.Errorf("secret %q: %w", p.name, err)
	}

	// NewEnclave wipes key.
	enclave := memguard.NewEnclave(key)

	p.mu.Lock()
	p.cached = enclave
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "payload encryption key loaded",
		"endpoint", p.endpoint,
		"secret", p.name,
	)
	return enclave, nil
}

func openEnclave(enclave *memguard.Enclave) ([]byte, error) {
	buf, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to open cached key: %w", err)
	}
	defer buf.Destroy()

	b := make([]byte, buf.Size())
	copy(b, buf.Bytes())
	return b, nil
}

// Compile-time interface check.
var _ KeyProvider = (*SecretKeyProvider)(nil)
