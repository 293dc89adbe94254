package crypto

import "go.opentelemetry.io/otel/metric"

// Option configures a Codec.
type Option func(*codecOptions)

type codecOptions struct {
	format         Format
	legacyEncoding string
	meterProvider  metric.MeterProvider
}

// WithFormat selects the envelope layout written by Encode. Defaults to FormatLegacy.
func WithFormat(f Format) Option {
	return func(o *codecOptions) {
		o.format = f
	}
}

// WithLegacyEncoding sets the plain encoding assumed for payloads in the legacy
// layout, which do not record one. Defaults to the inner converter's encoding
// when it is an EncodingConverter, json/plain otherwise.
func WithLegacyEncoding(encoding string) Option {
	return func(o *codecOptions) {
		o.legacyEncoding = encoding
	}
}

// WithMeterProvider sets the meter provider for codec metrics.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *codecOptions) {
		o.meterProvider = mp
	}
}
