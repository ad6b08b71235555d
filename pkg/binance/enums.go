package binance

import "fmt"

// Interval is a kline interval.
type Interval string

const (
	Interval1s  Interval = "1s"
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

var intervals = map[Interval]struct{}{
	Interval1s: {}, Interval1m: {}, Interval3m: {}, Interval5m: {}, Interval15m: {}, Interval30m: {},
	Interval1h: {}, Interval2h: {}, Interval4h: {}, Interval6h: {}, Interval8h: {}, Interval12h: {},
	Interval1d: {}, Interval3d: {}, Interval1w: {}, Interval1M: {},
}

func (i Interval) Validate() error {
	if _, ok := intervals[i]; !ok {
		return fmt.Errorf("binance: unknown interval %q", string(i))
	}
	return nil
}

// UpdateRate is the push cadence suffix of depth and mark-price streams.
// RateDefault omits the suffix and lets the server pick.
type UpdateRate string

const (
	RateDefault UpdateRate = ""
	Rate100ms   UpdateRate = "100ms"
	Rate250ms   UpdateRate = "250ms"
	Rate500ms   UpdateRate = "500ms"
	Rate1000ms  UpdateRate = "1000ms"
	Rate1s      UpdateRate = "1s"
	Rate3s      UpdateRate = "3s"
)

func (r UpdateRate) suffix() string {
	if r == RateDefault {
		return ""
	}
	return "@" + string(r)
}

func validateRate(stream string, r UpdateRate, allowed ...UpdateRate) error {
	if r == RateDefault {
		return nil
	}
	for _, a := range allowed {
		if r == a {
			return nil
		}
	}
	return fmt.Errorf("binance: rate %q not supported by %s", string(r), stream)
}

var depthLevels = map[int]struct{}{5: {}, 10: {}, 20: {}}
