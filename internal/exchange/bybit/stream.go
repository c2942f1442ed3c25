package bybit

import (
	"context"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

const (
	_bybitBaseWsUrl        = "wss://stream.bybit.com/v5/public/linear"
	_bybitBaseWsUrlTestnet = "wss://stream-testnet.bybit.com/v5/public/linear"
)

// PublicStream consumes the Bybit V5 public linear stream. No credentials
// are involved; it is independent of the client cache.
type PublicStream struct {
	wss *ws.WebSocket
}

func NewPublicStream(ctx context.Context, testnet bool) *PublicStream {
	wsURL := _bybitBaseWsUrl
	if testnet {
		wsURL = _bybitBaseWsUrlTestnet
	}

	return &PublicStream{
		wss: ws.New(ctx, wsURL),
	}
}

func (repo *PublicStream) Len() int {
	return repo.wss.Len()
}

func (repo *PublicStream) Close() {
	repo.wss.Close()
}

func (repo *PublicStream) CloseWhenEmpty() bool {
	if repo.Len() == 0 {
		repo.Close()
		logs.Info("close websocket. reason: empty")
		return true
	}

	return false
}

func (repo *PublicStream) StartWebsocket(ctx context.Context) error {
	if err := repo.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	return nil
}

type bybitSubscribeRequest struct {
	ReqID string   `json:"req_id"`
	Op    string   `json:"op"`
	Args  []string `json:"args"`
}

type bybitSubscribeResponse struct {
	Success bool   `json:"success"`
	RetMsg  string `json:"ret_msg"`
	ReqID   string `json:"req_id"`
	Op      string `json:"op"`
}

// SubscribeTicker subscribes the 'tickers.{symbol}' topic.
func (repo *PublicStream) SubscribeTicker(ctx context.Context, symbol string) error {
	reqID := "sub-tickers-" + symbol
	appendIntoRegister := true
	if err := repo.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := bybitSubscribeRequest{
				ReqID: reqID,
				Op:    "subscribe",
				Args:  []string{"tickers." + symbol},
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[bybitSubscribeResponse](m)
			if !ok || resp.ReqID != reqID {
				return false, nil
			}

			if !resp.Success {
				return false, errors.Errorf("subscribe and wait, err: %s", resp.RetMsg)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

// TickerEvent is a 'tickers' stream payload.
type TickerEvent struct {
	Topic string `json:"topic"`
	Type  string `json:"type"` // snapshot, delta
	Ts    int64  `json:"ts"`
	Data  struct {
		Symbol       string          `json:"symbol"`
		LastPrice    decimal.Decimal `json:"lastPrice"`
		Bid1Price    decimal.Decimal `json:"bid1Price"`
		Ask1Price    decimal.Decimal `json:"ask1Price"`
		Volume24h    decimal.Decimal `json:"volume24h"`
		Price24hPcnt decimal.Decimal `json:"price24hPcnt"`
	} `json:"data"`
}

func (repo *PublicStream) ObserveTicker(ctx context.Context, handler func(e TickerEvent)) (unsubscribe func()) {
	ch, cancel := repo.wss.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				resp, ok := ws.ReadMessage[TickerEvent](m)
				if !ok || resp.Topic == "" {
					continue
				}

				handler(resp)
			}
		}
	}()

	return cancel
}
