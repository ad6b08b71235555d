package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Mode selects how text frames are routed to the Decoder.
type Mode int

const (
	// SingleStream: the frame body is the event.
	SingleStream Mode = iota
	// CombinedStreams: the frame body is an Envelope wrapping the event.
	CombinedStreams
)

func (m Mode) String() string {
	switch m {
	case SingleStream:
		return "single"
	case CombinedStreams:
		return "combined"
	default:
		return fmt.Sprintf("mode_%d", int(m))
	}
}

// Decoder turns one event payload into E. It must not retain b.
type Decoder[E any] func(b []byte) (E, error)

// Envelope is the combined-stream wrapper {"stream": ..., "data": ...}.
type Envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// EnvelopeDecoder splits a combined-stream frame.
type EnvelopeDecoder func(b []byte) (Envelope, error)

// DecodeEnvelope is the default EnvelopeDecoder.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Stream == "" {
		return Envelope{}, errors.New("envelope: missing stream")
	}
	if len(env.Data) == 0 {
		return Envelope{}, errors.New("envelope: missing data")
	}
	return env, nil
}

// JSON returns a Decoder that unmarshals into E with encoding/json.
func JSON[E any]() Decoder[E] {
	return func(b []byte) (E, error) {
		var e E
		err := json.Unmarshal(b, &e)
		return e, err
	}
}

// route decodes a text frame into (stream name, event).
type route[E any] func(b []byte) (string, E, error)

func newRoute[E any](mode Mode, dec Decoder[E], env EnvelopeDecoder) route[E] {
	if mode == CombinedStreams {
		return func(b []byte) (string, E, error) {
			var zero E
			e, err := env(b)
			if err != nil {
				return "", zero, newError(KindDecode, "envelope", err)
			}
			ev, err := safeDecode(dec, e.Data)
			if err != nil {
				return e.Stream, zero, newError(KindDecode, e.Stream, err)
			}
			return e.Stream, ev, nil
		}
	}
	return func(b []byte) (string, E, error) {
		ev, err := safeDecode(dec, b)
		if err != nil {
			var zero E
			return "", zero, newError(KindDecode, "", err)
		}
		return "", ev, nil
	}
}

func safeDecode[E any](dec Decoder[E], b []byte) (ev E, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero E
			ev, err = zero, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return dec(b)
}
