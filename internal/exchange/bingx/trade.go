package bingx

import (
	"context"
)

// Side is the order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the order execution type.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// PlaceSpotOrderParams describes a spot order to create. Quantity and
// Price are decimal strings.
type PlaceSpotOrderParams struct {
	Symbol        string // e.g. "BTC-USDT"
	Side          Side
	Type          OrderType
	Quantity      string
	Price         string // required for limit orders
	ClientOrderID string
}

// SpotOrderResult identifies a created spot order.
type SpotOrderResult struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderID"`
	Status        string `json:"status"`
}

// PlaceSpotOrder creates a spot order.
func (c *Client) PlaceSpotOrder(ctx context.Context, p PlaceSpotOrderParams) (SpotOrderResult, error) {
	params := map[string]any{
		"symbol":   p.Symbol,
		"side":     string(p.Side),
		"type":     string(p.Type),
		"quantity": p.Quantity,
	}
	if p.Price != "" {
		params["price"] = p.Price
	}
	if p.ClientOrderID != "" {
		params["newClientOrderId"] = p.ClientOrderID
	}

	var out SpotOrderResult
	if err := c.post(ctx, "/openApi/spot/v1/trade/order", params, &out); err != nil {
		return SpotOrderResult{}, err
	}
	return out, nil
}

// CancelSpotOrder cancels a spot order by exchange order ID.
func (c *Client) CancelSpotOrder(ctx context.Context, symbol string, orderID int64) (SpotOrderResult, error) {
	params := map[string]any{
		"symbol":  symbol,
		"orderId": orderID,
	}

	var out SpotOrderResult
	if err := c.post(ctx, "/openApi/spot/v1/trade/cancel", params, &out); err != nil {
		return SpotOrderResult{}, err
	}
	return out, nil
}
