package binance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event is any decoded market-data payload.
type Event interface {
	EventType() string
	EventSymbol() string
	EventTime() time.Time
}

// Event type tags as sent in the "e" field.
const (
	TypeAggTrade      = "aggTrade"
	TypeTrade         = "trade"
	TypeMarkPrice     = "markPriceUpdate"
	TypeKline         = "kline"
	TypeMiniTicker    = "24hrMiniTicker"
	TypeTicker        = "24hrTicker"
	TypeBookTicker    = "bookTicker"
	TypeDepthUpdate   = "depthUpdate"
	TypeLiquidation   = "forceOrder"
	TypeDepthSnapshot = "depthSnapshot" // synthetic, spot partial depth has no tag
	TypeBatch         = "batch"         // synthetic, array streams
)

// Header is the common prefix of tagged payloads.
//
// encoding/json falls back to case-insensitive key matching, so every struct
// below declares both spellings wherever Binance uses a letter twice ("p"/"P").
type Header struct {
	Type   string `json:"e"`
	Time   int64  `json:"E"` // ms
	Symbol string `json:"s"`
}

func (h Header) EventType() string    { return h.Type }
func (h Header) EventSymbol() string  { return h.Symbol }
func (h Header) EventTime() time.Time { return time.UnixMilli(h.Time).UTC() }

type AggTrade struct {
	Header
	AggTradeID     int64           `json:"a"`
	Price          decimal.Decimal `json:"p"`
	Quantity       decimal.Decimal `json:"q"`
	FirstTradeID   int64           `json:"f"`
	LastTradeID    int64           `json:"l"`
	TradeTime      int64           `json:"T"`
	IsBuyerMaker   bool            `json:"m"`
	BestPriceMatch bool            `json:"M"` // spot only
}

type Trade struct {
	Header
	TradeID        int64           `json:"t"`
	Price          decimal.Decimal `json:"p"`
	Quantity       decimal.Decimal `json:"q"`
	BuyerOrderID   int64           `json:"b"`
	SellerOrderID  int64           `json:"a"`
	TradeTime      int64           `json:"T"`
	IsBuyerMaker   bool            `json:"m"`
	BestPriceMatch bool            `json:"M"`
}

type MarkPrice struct {
	Header
	MarkPrice            decimal.Decimal `json:"p"`
	IndexPrice           decimal.Decimal `json:"i"`
	EstimatedSettlePrice decimal.Decimal `json:"P"`
	FundingRate          decimal.Decimal `json:"r"`
	NextFundingTime      int64           `json:"T"`
}

type Kline struct {
	Header
	Kline KlineData `json:"k"`
}

type KlineData struct {
	StartTime           int64           `json:"t"`
	CloseTime           int64           `json:"T"`
	Symbol              string          `json:"s"`
	Interval            Interval        `json:"i"`
	FirstTradeID        int64           `json:"f"`
	LastTradeID         int64           `json:"L"`
	Open                decimal.Decimal `json:"o"`
	Close               decimal.Decimal `json:"c"`
	High                decimal.Decimal `json:"h"`
	Low                 decimal.Decimal `json:"l"`
	Volume              decimal.Decimal `json:"v"`
	Trades              int64           `json:"n"`
	IsClosed            bool            `json:"x"`
	QuoteVolume         decimal.Decimal `json:"q"`
	TakerBuyVolume      decimal.Decimal `json:"V"`
	TakerBuyQuoteVolume decimal.Decimal `json:"Q"`
	Ignore              json.RawMessage `json:"B"`
}

type MiniTicker struct {
	Header
	Close       decimal.Decimal `json:"c"`
	Open        decimal.Decimal `json:"o"`
	High        decimal.Decimal `json:"h"`
	Low         decimal.Decimal `json:"l"`
	Volume      decimal.Decimal `json:"v"`
	QuoteVolume decimal.Decimal `json:"q"`
}

type Ticker struct {
	Header
	PriceChange        decimal.Decimal `json:"p"`
	PriceChangePercent decimal.Decimal `json:"P"`
	WeightedAvgPrice   decimal.Decimal `json:"w"`
	PrevClosePrice     decimal.Decimal `json:"x"` // spot only
	LastPrice          decimal.Decimal `json:"c"`
	LastQuantity       decimal.Decimal `json:"Q"`
	BestBid            decimal.Decimal `json:"b"` // spot only
	BestBidQty         decimal.Decimal `json:"B"`
	BestAsk            decimal.Decimal `json:"a"`
	BestAskQty         decimal.Decimal `json:"A"`
	Open               decimal.Decimal `json:"o"`
	High               decimal.Decimal `json:"h"`
	Low                decimal.Decimal `json:"l"`
	Volume             decimal.Decimal `json:"v"`
	QuoteVolume        decimal.Decimal `json:"q"`
	OpenTime           int64           `json:"O"`
	CloseTime          int64           `json:"C"`
	FirstTradeID       int64           `json:"F"`
	LastTradeID        int64           `json:"L"`
	Trades             int64           `json:"n"`
}

type BookTicker struct {
	Header
	UpdateID        int64           `json:"u"`
	TransactionTime int64           `json:"T"` // futures only
	BestBid         decimal.Decimal `json:"b"`
	BestBidQty      decimal.Decimal `json:"B"`
	BestAsk         decimal.Decimal `json:"a"`
	BestAskQty      decimal.Decimal `json:"A"`
}

type DepthUpdate struct {
	Header
	TransactionTime int64   `json:"T"` // futures only
	FirstUpdateID   int64   `json:"U"`
	FinalUpdateID   int64   `json:"u"`
	PrevFinalID     int64   `json:"pu"` // futures only
	Bids            []Level `json:"b"`
	Asks            []Level `json:"a"`
}

// DepthSnapshot is the untagged spot partial-depth payload.
type DepthSnapshot struct {
	LastUpdateID int64   `json:"lastUpdateId"`
	Bids         []Level `json:"bids"`
	Asks         []Level `json:"asks"`
}

func (DepthSnapshot) EventType() string    { return TypeDepthSnapshot }
func (DepthSnapshot) EventSymbol() string  { return "" }
func (DepthSnapshot) EventTime() time.Time { return time.Time{} }

type Liquidation struct {
	Header
	Order LiquidationOrder `json:"o"`
}

func (l Liquidation) EventSymbol() string { return l.Order.Symbol }

type LiquidationOrder struct {
	Symbol         string          `json:"s"`
	Side           string          `json:"S"`
	OrderType      string          `json:"o"`
	TimeInForce    string          `json:"f"`
	Quantity       decimal.Decimal `json:"q"`
	Price          decimal.Decimal `json:"p"`
	AvgPrice       decimal.Decimal `json:"ap"`
	Status         string          `json:"X"`
	LastFilledQty  decimal.Decimal `json:"l"`
	FilledQty      decimal.Decimal `json:"z"`
	TradeTime      int64           `json:"T"`
}

// Batch holds the elements of an array stream such as !ticker@arr.
type Batch []Event

func (Batch) EventType() string    { return TypeBatch }
func (Batch) EventSymbol() string  { return "" }
func (Batch) EventTime() time.Time { return time.Time{} }

// Level is one [price, quantity] book entry.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var pair []decimal.Decimal
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("binance: level needs 2 elements, got %d", len(pair))
	}
	l.Price, l.Quantity = pair[0], pair[1]
	return nil
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]decimal.Decimal{l.Price, l.Quantity})
}
