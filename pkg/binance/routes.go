package binance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
)

// Host is a websocket base URL. Raw hosts end in "/ws/" and take exactly
// one stream; combined hosts end in "?streams=" and take several.
type Host string

const (
	HostFutures                Host = "wss://fstream.binance.com/ws/"
	HostFuturesCombined        Host = "wss://fstream.binance.com/stream?streams="
	HostSpot                   Host = "wss://stream.binance.com:9443/ws/"
	HostSpotCombined           Host = "wss://stream.binance.com:9443/stream?streams="
	HostFuturesTestnet         Host = "wss://stream.binancefuture.com/ws/"
	HostFuturesTestnetCombined Host = "wss://stream.binancefuture.com/stream?streams="
	HostSpotTestnet            Host = "wss://stream.testnet.binance.vision/ws/"
	HostSpotTestnetCombined    Host = "wss://stream.testnet.binance.vision/stream?streams="
)

var hostsByName = map[string]Host{
	"futures":                  HostFutures,
	"futures_combined":         HostFuturesCombined,
	"spot":                     HostSpot,
	"spot_combined":            HostSpotCombined,
	"futures_testnet":          HostFuturesTestnet,
	"futures_testnet_combined": HostFuturesTestnetCombined,
	"spot_testnet":             HostSpotTestnet,
	"spot_testnet_combined":    HostSpotTestnetCombined,
}

// ParseHost resolves a config name ("futures", "spot_combined", ...) or a
// literal ws/wss base URL.
func ParseHost(s string) (Host, error) {
	if h, ok := hostsByName[strings.ToLower(s)]; ok {
		return h, nil
	}
	if strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://") {
		return Host(s), nil
	}
	return "", fmt.Errorf("binance: unknown host %q", s)
}

func (h Host) Combined() bool { return strings.HasSuffix(string(h), "?streams=") }

// Mode is the stream.Mode frames from this host must be decoded with.
func (h Host) Mode() stream.Mode {
	if h.Combined() {
		return stream.CombinedStreams
	}
	return stream.SingleStream
}

// Route accumulates stream names for one Host. The first invalid argument
// is remembered and reported by Build.
type Route struct {
	host    Host
	streams []string
	err     error
}

func NewRoute(h Host) *Route { return &Route{host: h} }

func (r *Route) add(name string) *Route {
	r.streams = append(r.streams, name)
	return r
}

func (r *Route) fail(err error) *Route {
	if r.err == nil {
		r.err = err
	}
	return r
}

func (r *Route) symbol(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		r.fail(errors.New("binance: empty symbol"))
		return "", false
	}
	return s, true
}

func (r *Route) AggTrade(symbol string) *Route {
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@aggTrade")
	}
	return r
}

func (r *Route) Trade(symbol string) *Route {
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@trade")
	}
	return r
}

func (r *Route) MarkPrice(symbol string, rate UpdateRate) *Route {
	if err := validateRate("markPrice", rate, Rate1s, Rate3s); err != nil {
		return r.fail(err)
	}
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@markPrice" + rate.suffix())
	}
	return r
}

func (r *Route) MarkPriceAll(rate UpdateRate) *Route {
	if err := validateRate("markPrice", rate, Rate1s, Rate3s); err != nil {
		return r.fail(err)
	}
	return r.add("!markPrice@arr" + rate.suffix())
}

func (r *Route) Kline(symbol string, interval Interval) *Route {
	if err := interval.Validate(); err != nil {
		return r.fail(err)
	}
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@kline_" + string(interval))
	}
	return r
}

func (r *Route) MiniTicker(symbol string) *Route {
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@miniTicker")
	}
	return r
}

func (r *Route) MiniTickerAll() *Route { return r.add("!miniTicker@arr") }

func (r *Route) Ticker(symbol string) *Route {
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@ticker")
	}
	return r
}

func (r *Route) TickerAll() *Route { return r.add("!ticker@arr") }

func (r *Route) BookTicker(symbol string) *Route {
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@bookTicker")
	}
	return r
}

func (r *Route) BookTickerAll() *Route { return r.add("!bookTicker") }

func (r *Route) Liquidation(symbol string) *Route {
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@forceOrder")
	}
	return r
}

func (r *Route) LiquidationAll() *Route { return r.add("!forceOrder@arr") }

// PartialDepth subscribes to the top levels (5, 10 or 20) of the book.
func (r *Route) PartialDepth(symbol string, levels int, rate UpdateRate) *Route {
	if _, ok := depthLevels[levels]; !ok {
		return r.fail(fmt.Errorf("binance: depth levels must be 5, 10 or 20, got %d", levels))
	}
	if err := validateRate("depth", rate, Rate100ms, Rate250ms, Rate500ms, Rate1000ms); err != nil {
		return r.fail(err)
	}
	if s, ok := r.symbol(symbol); ok {
		r.add(fmt.Sprintf("%s@depth%d%s", s, levels, rate.suffix()))
	}
	return r
}

func (r *Route) DiffDepth(symbol string, rate UpdateRate) *Route {
	if err := validateRate("depth", rate, Rate100ms, Rate250ms, Rate500ms, Rate1000ms); err != nil {
		return r.fail(err)
	}
	if s, ok := r.symbol(symbol); ok {
		r.add(s + "@depth" + rate.suffix())
	}
	return r
}

// Stream adds a preformatted stream name such as "btcusdt@aggTrade".
func (r *Route) Stream(name string) *Route {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.fail(errors.New("binance: empty stream name"))
	}
	return r.add(name)
}

func (r *Route) Streams() []string { return append([]string(nil), r.streams...) }

// Build returns the Connect target.
func (r *Route) Build() (string, error) {
	switch {
	case r.err != nil:
		return "", r.err
	case len(r.streams) == 0:
		return "", errors.New("binance: route has no streams")
	case !r.host.Combined() && len(r.streams) > 1:
		return "", fmt.Errorf("binance: %s takes one stream, got %d; use a combined host", r.host, len(r.streams))
	}
	return string(r.host) + strings.Join(r.streams, "/"), nil
}
