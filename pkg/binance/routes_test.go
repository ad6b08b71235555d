package binance

import (
	"testing"

	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream"
)

func TestRoute_Build(t *testing.T) {
	cases := []struct {
		name    string
		route   *Route
		want    string
		wantErr bool
	}{
		{"single aggTrade", NewRoute(HostFutures).AggTrade("BTCUSDT"),
			"wss://fstream.binance.com/ws/btcusdt@aggTrade", false},
		{"combined kline", NewRoute(HostFuturesCombined).Kline("btcusdt", Interval5m),
			"wss://fstream.binance.com/stream?streams=btcusdt@kline_5m", false},
		{"combined many", NewRoute(HostSpotCombined).Trade("ethusdt").BookTicker("ethusdt").TickerAll(),
			"wss://stream.binance.com:9443/stream?streams=ethusdt@trade/ethusdt@bookTicker/!ticker@arr", false},
		{"mark price rate", NewRoute(HostFutures).MarkPrice("btcusdt", Rate1s),
			"wss://fstream.binance.com/ws/btcusdt@markPrice@1s", false},
		{"mark price all", NewRoute(HostFutures).MarkPriceAll(RateDefault),
			"wss://fstream.binance.com/ws/!markPrice@arr", false},
		{"partial depth", NewRoute(HostFutures).PartialDepth("btcusdt", 10, Rate100ms),
			"wss://fstream.binance.com/ws/btcusdt@depth10@100ms", false},
		{"diff depth", NewRoute(HostSpot).DiffDepth("bnbbtc", RateDefault),
			"wss://stream.binance.com:9443/ws/bnbbtc@depth", false},
		{"liquidations", NewRoute(HostFuturesCombined).Liquidation("btcusdt").LiquidationAll(),
			"wss://fstream.binance.com/stream?streams=btcusdt@forceOrder/!forceOrder@arr", false},
		{"raw stream", NewRoute(HostFuturesTestnet).Stream("btcusdt@miniTicker"),
			"wss://stream.binancefuture.com/ws/btcusdt@miniTicker", false},

		{"empty", NewRoute(HostFutures), "", true},
		{"single host many", NewRoute(HostFutures).AggTrade("a").AggTrade("b"), "", true},
		{"bad interval", NewRoute(HostFutures).Kline("btcusdt", "7m"), "", true},
		{"bad depth levels", NewRoute(HostFutures).PartialDepth("btcusdt", 7, RateDefault), "", true},
		{"bad mark rate", NewRoute(HostFutures).MarkPrice("btcusdt", Rate100ms), "", true},
		{"empty symbol", NewRoute(HostFutures).Ticker(" "), "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.route.Build()
			if (err != nil) != c.wantErr {
				t.Fatalf("Build() error = %v; wantErr %v", err, c.wantErr)
			}
			if got != c.want {
				t.Errorf("Build() = %q; want %q", got, c.want)
			}
		})
	}
}

func TestHost_Mode(t *testing.T) {
	if HostFutures.Mode() != stream.SingleStream || HostSpotTestnet.Combined() {
		t.Error("raw hosts must be single-stream")
	}
	if HostSpotCombined.Mode() != stream.CombinedStreams || !HostFuturesTestnetCombined.Combined() {
		t.Error("combined hosts must be combined-stream")
	}
}

func TestParseHost(t *testing.T) {
	cases := []struct {
		in      string
		want    Host
		wantErr bool
	}{
		{"futures", HostFutures, false},
		{"SPOT_COMBINED", HostSpotCombined, false},
		{"ws://localhost:9000/stream?streams=", Host("ws://localhost:9000/stream?streams="), false},
		{"mars", "", true},
	}
	for _, c := range cases {
		got, err := ParseHost(c.in)
		if (err != nil) != c.wantErr || got != c.want {
			t.Errorf("ParseHost(%q) = (%q, %v); want %q", c.in, got, err, c.want)
		}
	}
}

func TestInterval_Validate(t *testing.T) {
	for _, i := range []Interval{Interval1s, Interval15m, Interval1M} {
		if err := i.Validate(); err != nil {
			t.Errorf("%s: %v", i, err)
		}
	}
	if err := Interval("2w").Validate(); err == nil {
		t.Error("2w accepted")
	}
}
