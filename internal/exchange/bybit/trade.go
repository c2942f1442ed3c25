package bybit

import (
	"context"

	"main/pkg/exception"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// PlaceOrderParams describes an order to create. Qty, Price and the other
// numeric fields are decimal strings; Bybit V5 requires them as strings.
type PlaceOrderParams struct {
	Symbol      string
	Side        Side
	OrderType   OrderType
	Qty         string
	Price       string // required for limit orders
	TimeInForce TimeInForce
	OrderLinkID string
	ReduceOnly  bool
	PositionIdx *int // 0 one-way, 1 buy hedge, 2 sell hedge

	TriggerPrice string
	TriggerBy    TriggerBy
	TakeProfit   string
	StopLoss     string
}

// OrderResult identifies a created or cancelled order.
type OrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// PlaceOrder creates an order.
func (c *Client) PlaceOrder(ctx context.Context, category Category, p PlaceOrderParams) (OrderResult, error) {
	params := map[string]any{
		"category":  string(category),
		"symbol":    p.Symbol,
		"side":      string(p.Side),
		"orderType": string(p.OrderType),
		"qty":       p.Qty,
	}
	if p.Price != "" {
		params["price"] = p.Price
	}
	if p.TimeInForce != "" {
		params["timeInForce"] = string(p.TimeInForce)
	}
	if p.OrderLinkID != "" {
		params["orderLinkId"] = p.OrderLinkID
	}
	if p.ReduceOnly {
		params["reduceOnly"] = true
	}
	if p.PositionIdx != nil {
		params["positionIdx"] = *p.PositionIdx
	}
	if p.TriggerPrice != "" {
		params["triggerPrice"] = p.TriggerPrice
	}
	if p.TriggerBy != "" {
		params["triggerBy"] = string(p.TriggerBy)
	}
	if p.TakeProfit != "" {
		params["takeProfit"] = p.TakeProfit
	}
	if p.StopLoss != "" {
		params["stopLoss"] = p.StopLoss
	}

	var out OrderResult
	if err := c.post(ctx, "/v5/order/create", params, &out); err != nil {
		return OrderResult{}, err
	}
	return out, nil
}

// CancelOrderParams identifies the order to cancel; one of OrderID or
// OrderLinkID is required.
type CancelOrderParams struct {
	Symbol      string
	OrderID     string
	OrderLinkID string
}

// CancelOrder cancels a single open order.
func (c *Client) CancelOrder(ctx context.Context, category Category, p CancelOrderParams) (OrderResult, error) {
	if p.OrderID == "" && p.OrderLinkID == "" {
		return OrderResult{}, errors.Wrap(exception.ErrInvalidArgument, "cancel requires orderId or orderLinkId")
	}

	params := map[string]any{
		"category": string(category),
		"symbol":   p.Symbol,
	}
	if p.OrderID != "" {
		params["orderId"] = p.OrderID
	}
	if p.OrderLinkID != "" {
		params["orderLinkId"] = p.OrderLinkID
	}

	var out OrderResult
	if err := c.post(ctx, "/v5/order/cancel", params, &out); err != nil {
		return OrderResult{}, err
	}
	return out, nil
}

// CancelAllResult lists the orders removed by a cancel-all.
type CancelAllResult struct {
	List []OrderResult `json:"list"`
}

// CancelAllOrders cancels every open order of a category, optionally
// narrowed to one symbol.
func (c *Client) CancelAllOrders(ctx context.Context, category Category, symbol string) (CancelAllResult, error) {
	params := map[string]any{
		"category": string(category),
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	var out CancelAllResult
	if err := c.post(ctx, "/v5/order/cancel-all", params, &out); err != nil {
		return CancelAllResult{}, err
	}
	return out, nil
}

// OpenOrder is one entry of the realtime order list.
type OpenOrder struct {
	OrderID     string          `json:"orderId"`
	OrderLinkID string          `json:"orderLinkId"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	OrderType   OrderType       `json:"orderType"`
	OrderStatus string          `json:"orderStatus"`
	Price       decimal.Decimal `json:"price"`
	Qty         decimal.Decimal `json:"qty"`
	LeavesQty   decimal.Decimal `json:"leavesQty"`
}

// OpenOrdersResult is the /v5/order/realtime result.
type OpenOrdersResult struct {
	Category       string      `json:"category"`
	List           []OpenOrder `json:"list"`
	NextPageCursor string      `json:"nextPageCursor"`
}

// GetOpenOrders queries open and recently closed orders.
func (c *Client) GetOpenOrders(ctx context.Context, category Category, symbol string) (OpenOrdersResult, error) {
	params := map[string]any{
		"category": string(category),
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	var out OpenOrdersResult
	if err := c.get(ctx, "/v5/order/realtime", params, true, &out); err != nil {
		return OpenOrdersResult{}, err
	}
	return out, nil
}
