package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
)

var (
	// ErrCodecMalformed means the stored bytes are not a valid envelope or
	// the payload does not fit the namespace's type.
	ErrCodecMalformed = errors.New("malformed cache entry")
	// ErrCodecMismatch means the envelope was written for another namespace.
	ErrCodecMismatch = errors.New("cache entry namespace mismatch")
)

// envelope tags every JSON value with the namespace that wrote it.
type envelope struct {
	NS   Namespace       `json:"ns"`
	Data json.RawMessage `json:"data"`
}

// Codec serializes values of one namespace.
type Codec[T any] struct {
	ns Namespace
}

// NewCodec returns the codec bound to ns.
func NewCodec[T any](ns Namespace) Codec[T] {
	return Codec[T]{ns: ns}
}

// Namespace returns the namespace the codec is bound to.
func (c Codec[T]) Namespace() Namespace {
	return c.ns
}

// Encode wraps v in a tagged envelope.
func (c Codec[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s entry: %w", c.ns, err)
	}
	return json.Marshal(envelope{NS: c.ns, Data: data})
}

// Decode unwraps an envelope written by the same namespace.
func (c Codec[T]) Decode(raw []byte) (T, error) {
	var zero T

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCodecMalformed, err)
	}
	if env.NS != c.ns {
		return zero, fmt.Errorf("%w: want %q, got %q", ErrCodecMismatch, c.ns, env.NS)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return zero, fmt.Errorf("%w: empty payload", ErrCodecMalformed)
	}

	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCodecMalformed, err)
	}
	return v, nil
}

// One codec per JSON namespace.
var (
	liveStreamsCodec = NewCodec[[]domain.Stream](NSLiveStreams)
	streamCodec      = NewCodec[domain.Stream](NSStream)
	userCodec        = NewCodec[domain.User](NSUser)
	userEmailCodec   = NewCodec[domain.User](NSUserEmail)
	paymentCodec     = NewCodec[domain.Payment](NSPayment)
	sentPageCodec    = NewCodec[domain.PaymentPage](NSSentPayments)
	recvPageCodec    = NewCodec[domain.PaymentPage](NSReceivedPayments)
	streamStatsCodec = NewCodec[domain.StreamPaymentStats](NSStreamStats)
)
