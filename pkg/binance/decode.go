package binance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownEvent is returned for payloads whose "e" tag (or shape) is not recognised.
var ErrUnknownEvent = errors.New("binance: unknown event")

// DecodeEvent decodes one stream payload. It satisfies stream.Decoder[Event].
func DecodeEvent(b []byte) (Event, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return decodeBatch(b)
	}

	// A map keeps "e" and "E" apart; struct tags would match case-insensitively.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}

	var tag string
	if raw, ok := fields["e"]; ok {
		if err := json.Unmarshal(raw, &tag); err != nil {
			return nil, fmt.Errorf("binance: event tag: %w", err)
		}
	}

	switch tag {
	case TypeAggTrade:
		return decodeAs[AggTrade](b)
	case TypeTrade:
		return decodeAs[Trade](b)
	case TypeMarkPrice:
		return decodeAs[MarkPrice](b)
	case TypeKline:
		return decodeAs[Kline](b)
	case TypeMiniTicker:
		return decodeAs[MiniTicker](b)
	case TypeTicker:
		return decodeAs[Ticker](b)
	case TypeBookTicker:
		return decodeAs[BookTicker](b)
	case TypeDepthUpdate:
		return decodeAs[DepthUpdate](b)
	case TypeLiquidation:
		return decodeAs[Liquidation](b)
	case "":
		return decodeUntagged(b, fields)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, tag)
	}
}

// decodeUntagged handles spot payloads that carry no "e" field.
func decodeUntagged(b []byte, fields map[string]json.RawMessage) (Event, error) {
	if _, ok := fields["lastUpdateId"]; ok {
		return decodeAs[DepthSnapshot](b)
	}
	if hasAll(fields, "u", "s", "b", "B", "a", "A") {
		ev, err := decodeAs[BookTicker](b)
		if err != nil {
			return nil, err
		}
		bt := ev.(BookTicker)
		bt.Type = TypeBookTicker
		return bt, nil
	}
	return nil, fmt.Errorf("%w: untagged payload", ErrUnknownEvent)
}

func decodeBatch(b []byte) (Event, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}
	batch := make(Batch, 0, len(items))
	for i, item := range items {
		ev, err := DecodeEvent(item)
		if err != nil {
			return nil, fmt.Errorf("binance: batch[%d]: %w", i, err)
		}
		batch = append(batch, ev)
	}
	return batch, nil
}

func decodeAs[T Event](b []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, fmt.Errorf("binance: decode %T: %w", ev, err)
	}
	return ev, nil
}

func hasAll(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return false
		}
	}
	return true
}

// Quote is a minimal {"price": "..."} payload, handy for probes and tests.
type Quote struct {
	Price decimal.Decimal `json:"price"`
}

// DecodeQuote decodes a Quote and requires the price to be present.
func DecodeQuote(b []byte) (Quote, error) {
	var raw struct {
		Price *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Quote{}, fmt.Errorf("binance: quote: %w", err)
	}
	if raw.Price == nil {
		return Quote{}, errors.New("binance: quote: missing price")
	}
	return Quote{Price: *raw.Price}, nil
}
