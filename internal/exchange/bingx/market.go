package bingx

import (
	"context"

	"github.com/yanun0323/decimal"
)

// ServerTime is the swap server time result.
type ServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// GetServerTime returns the exchange server time. Unauthenticated.
func (c *Client) GetServerTime(ctx context.Context) (ServerTime, error) {
	var out ServerTime
	if err := c.get(ctx, "/openApi/swap/v2/server/time", nil, false, &out); err != nil {
		return ServerTime{}, err
	}
	return out, nil
}

// SymbolPrice is the swap symbol price result.
type SymbolPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   int64           `json:"time"`
}

// GetSymbolPrice returns the latest trade price of a swap symbol, e.g.
// "BTC-USDT". Unauthenticated.
func (c *Client) GetSymbolPrice(ctx context.Context, symbol string) (SymbolPrice, error) {
	params := map[string]any{
		"symbol": symbol,
	}

	var out SymbolPrice
	if err := c.get(ctx, "/openApi/swap/v1/ticker/price", params, false, &out); err != nil {
		return SymbolPrice{}, err
	}
	return out, nil
}
