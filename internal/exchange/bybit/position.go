package bybit

import (
	"context"

	"github.com/yanun0323/decimal"
)

// Position is one entry of the position list.
type Position struct {
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Size          decimal.Decimal `json:"size"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	Leverage      decimal.Decimal `json:"leverage"`
	UnrealisedPnl decimal.Decimal `json:"unrealisedPnl"`
	PositionIdx   int             `json:"positionIdx"`
}

// PositionsResult is the /v5/position/list result.
type PositionsResult struct {
	Category       string     `json:"category"`
	List           []Position `json:"list"`
	NextPageCursor string     `json:"nextPageCursor"`
}

// GetPositions queries open positions of a category, optionally narrowed
// to one symbol.
func (c *Client) GetPositions(ctx context.Context, category Category, symbol string) (PositionsResult, error) {
	params := map[string]any{
		"category": string(category),
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	var out PositionsResult
	if err := c.get(ctx, "/v5/position/list", params, true, &out); err != nil {
		return PositionsResult{}, err
	}
	return out, nil
}

// SetLeverage updates buy and sell leverage of a symbol. Leverage values
// are decimal strings, e.g. "10".
func (c *Client) SetLeverage(ctx context.Context, category Category, symbol, buy, sell string) error {
	params := map[string]any{
		"category":     string(category),
		"symbol":       symbol,
		"buyLeverage":  buy,
		"sellLeverage": sell,
	}

	return c.post(ctx, "/v5/position/set-leverage", params, nil)
}
