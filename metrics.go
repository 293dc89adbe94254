package crypto

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	resultEncrypted   = "encrypted"
	resultDecrypted   = "decrypted"
	resultPassthrough = "passthrough"
	resultError       = "error"
)

// codecMetrics holds the codec's instruments.
type codecMetrics struct {
	encode         metric.Int64Counter
	decode         metric.Int64Counter
	decryptFailure metric.Int64Counter
}

func newCodecMetrics(mp metric.MeterProvider) (*codecMetrics, error) {
	meter := mp.Meter(instrumentationName)

	encode, err := meter.Int64Counter("payload_crypto.encode",
		metric.WithDescription("Payloads processed by the encrypting side of the codec."),
		metric.WithUnit("{payload}"),
	)
	if err != nil {
		return nil, err
	}
	decode, err := meter.Int64Counter("payload_crypto.decode",
		metric.WithDescription("Payloads processed by the decrypting side of the codec."),
		metric.WithUnit("{payload}"),
	)
	if err != nil {
		return nil, err
	}
	decryptFailure, err := meter.Int64Counter("payload_crypto.decrypt.failures",
		metric.WithDescription("Encrypted payloads that failed authentication or were malformed."),
		metric.WithUnit("{payload}"),
	)
	if err != nil {
		return nil, err
	}

	return &codecMetrics{encode: encode, decode: decode, decryptFailure: decryptFailure}, nil
}

func (m *codecMetrics) recordEncode(result string) {
	m.encode.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *codecMetrics) recordDecode(result string) {
	ctx := context.Background()
	m.decode.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	if result == resultError {
		m.decryptFailure.Add(ctx, 1)
	}
}
