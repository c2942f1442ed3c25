package bingx

import (
	"context"

	"github.com/yanun0323/decimal"
)

// SpotBalance is the balance of one asset in the spot account.
type SpotBalance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// SpotBalancesResult is the spot account balance result.
type SpotBalancesResult struct {
	Balances []SpotBalance `json:"balances"`
}

// GetSpotBalances queries the spot account asset balances.
func (c *Client) GetSpotBalances(ctx context.Context) (SpotBalancesResult, error) {
	var out SpotBalancesResult
	if err := c.get(ctx, "/openApi/spot/v1/account/balance", nil, true, &out); err != nil {
		return SpotBalancesResult{}, err
	}
	return out, nil
}
