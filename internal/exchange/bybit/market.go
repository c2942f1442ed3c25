package bybit

import (
	"context"

	"main/pkg/exception"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// ServerTime is the /v5/market/time result.
type ServerTime struct {
	TimeSecond string `json:"timeSecond"`
	TimeNano   string `json:"timeNano"`
}

// GetServerTime returns the exchange server time. Unauthenticated.
func (c *Client) GetServerTime(ctx context.Context) (ServerTime, error) {
	var out ServerTime
	if err := c.get(ctx, "/v5/market/time", nil, false, &out); err != nil {
		return ServerTime{}, err
	}
	return out, nil
}

// KlineParams selects a candle range.
type KlineParams struct {
	Symbol   string
	Interval string // 1,3,5,15,30,60,120,240,360,720,D,W,M
	Category Category
	Start    int64 // ms, optional
	End      int64 // ms, optional
	Limit    int   // 1-1000, optional
}

// KlineResult carries candles as returned by the exchange:
// [startTime, open, high, low, close, volume, turnover].
type KlineResult struct {
	Symbol   string      `json:"symbol"`
	Category string      `json:"category"`
	List     [][7]string `json:"list"`
}

// GetKline returns historical candlesticks. Unauthenticated.
func (c *Client) GetKline(ctx context.Context, p KlineParams) (KlineResult, error) {
	if p.Symbol == "" || p.Interval == "" {
		return KlineResult{}, errors.Wrap(exception.ErrInvalidArgument, "kline requires symbol and interval")
	}

	params := map[string]any{
		"symbol":   p.Symbol,
		"interval": p.Interval,
	}
	if p.Category != "" {
		params["category"] = string(p.Category)
	}
	if p.Start > 0 {
		params["start"] = p.Start
	}
	if p.End > 0 {
		params["end"] = p.End
	}
	if p.Limit > 0 {
		params["limit"] = p.Limit
	}

	var out KlineResult
	if err := c.get(ctx, "/v5/market/kline", params, false, &out); err != nil {
		return KlineResult{}, err
	}
	return out, nil
}

// Instrument is one entry of the instruments info list.
type Instrument struct {
	Symbol    string `json:"symbol"`
	Status    string `json:"status"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
}

// InstrumentsResult is the /v5/market/instruments-info result.
type InstrumentsResult struct {
	Category       string       `json:"category"`
	List           []Instrument `json:"list"`
	NextPageCursor string       `json:"nextPageCursor"`
}

// GetInstrumentsInfo queries the specification of online trading pairs.
func (c *Client) GetInstrumentsInfo(ctx context.Context, category Category, symbol string) (InstrumentsResult, error) {
	params := map[string]any{
		"category": string(category),
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	var out InstrumentsResult
	if err := c.get(ctx, "/v5/market/instruments-info", params, false, &out); err != nil {
		return InstrumentsResult{}, err
	}
	return out, nil
}

// Ticker is one entry of the tickers list.
type Ticker struct {
	Symbol       string          `json:"symbol"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
	Bid1Price    decimal.Decimal `json:"bid1Price"`
	Ask1Price    decimal.Decimal `json:"ask1Price"`
	Volume24h    decimal.Decimal `json:"volume24h"`
	Turnover24h  decimal.Decimal `json:"turnover24h"`
	HighPrice24h decimal.Decimal `json:"highPrice24h"`
	LowPrice24h  decimal.Decimal `json:"lowPrice24h"`
}

// TickersResult is the /v5/market/tickers result.
type TickersResult struct {
	Category string   `json:"category"`
	List     []Ticker `json:"list"`
}

// GetTickers returns the latest price snapshot for symbols of a category.
func (c *Client) GetTickers(ctx context.Context, category Category, symbol string) (TickersResult, error) {
	params := map[string]any{
		"category": string(category),
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	var out TickersResult
	if err := c.get(ctx, "/v5/market/tickers", params, false, &out); err != nil {
		return TickersResult{}, err
	}
	return out, nil
}
