package bybit

import (
	"context"
	"strings"

	"github.com/yanun0323/decimal"
)

// CoinBalance is the balance of one coin within a wallet account.
type CoinBalance struct {
	Coin            string          `json:"coin"`
	WalletBalance   decimal.Decimal `json:"walletBalance"`
	AvailableToDraw decimal.Decimal `json:"availableToWithdraw"`
	Locked          decimal.Decimal `json:"locked"`
}

// WalletAccount is one account entry of the wallet balance result.
type WalletAccount struct {
	AccountType    string          `json:"accountType"`
	TotalEquity    decimal.Decimal `json:"totalEquity"`
	TotalAvailable decimal.Decimal `json:"totalAvailableBalance"`
	Coin           []CoinBalance   `json:"coin"`
}

// WalletBalanceResult is the /v5/account/wallet-balance result.
type WalletBalanceResult struct {
	List []WalletAccount `json:"list"`
}

// GetWalletBalance queries wallet balances, optionally narrowed to coins.
func (c *Client) GetWalletBalance(ctx context.Context, accountType AccountType, coins ...string) (WalletBalanceResult, error) {
	params := map[string]any{
		"accountType": string(accountType),
	}
	if len(coins) > 0 {
		params["coin"] = strings.Join(coins, ",")
	}

	var out WalletBalanceResult
	if err := c.get(ctx, "/v5/account/wallet-balance", params, true, &out); err != nil {
		return WalletBalanceResult{}, err
	}
	return out, nil
}
