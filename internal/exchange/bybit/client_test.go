package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"main/pkg/exception"
	"main/pkg/session"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/decimal"
)

var testCreds = Credentials{
	APIKey:    "testkey",
	APISecret: "testsecret",
	Testnet:   true,
}

// isolated returns an option bound to a private, uninitialized session
// manager so tests never touch the process-wide one.
func isolated() Option {
	return Option{Sessions: session.NewManager()}
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.bybit.com", baseURL(Credentials{}))
	assert.Equal(t, "https://api-testnet.bybit.com", baseURL(Credentials{Testnet: true}))
	assert.Equal(t, "https://api-demo.bybit.com", baseURL(Credentials{Demo: true}))
	assert.Equal(t, "https://api-demo-testnet.bybit.com", baseURL(Credentials{Demo: true, Testnet: true}))
}

func TestNewMissingCredentials(t *testing.T) {
	_, err := New(Credentials{}, isolated())
	require.ErrorIs(t, err, exception.ErrMissingCredentials)

	_, err = New(Credentials{APIKey: "k"}, isolated())
	require.ErrorIs(t, err, exception.ErrMissingCredentials)
}

func TestPreparePayloadGet(t *testing.T) {
	payload, err := preparePayload(http.MethodGet, map[string]any{
		"symbol":   "BTCUSDT",
		"category": "linear",
		"cursor":   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "category=linear&symbol=BTCUSDT", payload)
}

func TestPreparePayloadPost(t *testing.T) {
	payload, err := preparePayload(http.MethodPost, map[string]any{
		"symbol":      "BTCUSDT",
		"side":        "Buy",
		"orderType":   "Limit",
		"qty":         "0.001",
		"price":       "10000",
		"timeInForce": "GTC",
		"category":    "linear",
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"category":"linear","orderType":"Limit","price":"10000","qty":"0.001","side":"Buy","symbol":"BTCUSDT","timeInForce":"GTC"}`,
		payload)

	empty, err := preparePayload(http.MethodPost, nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)
}

func TestSignGolden(t *testing.T) {
	c, err := New(testCreds, isolated())
	require.NoError(t, err)

	assert.Equal(t,
		"32524866978a26cd7a127286d062a4d1bdcab2faecbf0561aed35c7d805978ad",
		c.sign("1658385579423", "category=linear&symbol=BTCUSDT"))

	assert.Equal(t,
		"2c85c18aca31432ab00c8e6f3eb43148aea7b701040eddca49457d2ed83bae1a",
		c.sign("1658385579423", `{"category":"linear","orderType":"Limit","price":"10000","qty":"0.001","side":"Buy","symbol":"BTCUSDT","timeInForce":"GTC"}`))
}

func TestAuthenticatedGetSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "testkey", r.Header.Get("X-BAPI-API-KEY"))
		require.Equal(t, "1", r.Header.Get("X-BAPI-SIGN-TYPE"))
		require.Equal(t, "5000", r.Header.Get("X-BAPI-RECV-WINDOW"))
		require.NotEmpty(t, r.Header.Get("X-BAPI-TIMESTAMP"))

		// Recompute the signature from what actually arrived.
		mac := hmac.New(sha256.New, []byte("testsecret"))
		mac.Write([]byte(r.Header.Get("X-BAPI-TIMESTAMP") + "testkey" + "5000" + r.URL.RawQuery))
		require.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-BAPI-SIGN"))

		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[]},"time":1}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	_, err = c.GetOpenOrders(t.Context(), CategoryLinear, "BTCUSDT")
	require.NoError(t, err)
}

func TestAuthenticatedPostSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		// The signed payload must match the body byte for byte.
		mac := hmac.New(sha256.New, []byte("testsecret"))
		mac.Write([]byte(r.Header.Get("X-BAPI-TIMESTAMP") + "testkey" + "5000" + string(body)))
		require.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-BAPI-SIGN"))

		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"1001","orderLinkId":"link-1"},"time":1}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	order, err := c.PlaceOrder(t.Context(), CategoryLinear, PlaceOrderParams{
		Symbol:      "BTCUSDT",
		Side:        SideBuy,
		OrderType:   OrderTypeLimit,
		Qty:         "0.001",
		Price:       "10000",
		TimeInForce: TimeInForceGTC,
	})
	require.NoError(t, err)
	assert.Equal(t, "1001", order.OrderID)
	assert.Equal(t, "link-1", order.OrderLinkID)
}

func TestGetServerTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v5/market/time", r.URL.Path)
		require.Empty(t, r.Header.Get("X-BAPI-SIGN"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"timeSecond":"1688639403","timeNano":"1688639403423213947"},"time":1}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	st, err := c.GetServerTime(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "1688639403", st.TimeSecond)
}

func TestGetKlineInvalidArgument(t *testing.T) {
	c, err := New(testCreds, isolated())
	require.NoError(t, err)

	_, err = c.GetKline(t.Context(), KlineParams{Symbol: "BTCUSDT"})
	require.ErrorIs(t, err, exception.ErrInvalidArgument)
}

func TestCancelOrderInvalidArgument(t *testing.T) {
	c, err := New(testCreds, isolated())
	require.NoError(t, err)

	// Without an order identifier nothing goes to the wire.
	_, err = c.CancelOrder(t.Context(), CategoryLinear, CancelOrderParams{Symbol: "BTCUSDT"})
	require.ErrorIs(t, err, exception.ErrInvalidArgument)
}

func TestResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":10001,"retMsg":"params error","result":{},"time":1}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	_, err = c.GetServerTime(t.Context())
	require.ErrorIs(t, err, exception.ErrInResponseError)
	assert.Contains(t, err.Error(), "params error")
}

func TestTickersDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v5/market/tickers", r.URL.Path)
		require.Equal(t, "category=linear&symbol=BTCUSDT", r.URL.RawQuery)
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[{"symbol":"BTCUSDT","lastPrice":"17216.00","bid1Price":"17215.50","ask1Price":"17216.50","volume24h":"91705.276","highPrice24h":"17281.50","lowPrice24h":"17106.00"}]},"time":1}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	tickers, err := c.GetTickers(t.Context(), CategoryLinear, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, tickers.List, 1)
	assert.Equal(t, "BTCUSDT", tickers.List[0].Symbol)

	var want decimal.Decimal
	require.NoError(t, sonic.Unmarshal([]byte(`"17216.00"`), &want))
	assert.Equal(t, want, tickers.List[0].LastPrice)
}

func TestSharedSessionBinding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"timeSecond":"1","timeNano":"1"},"time":1}`))
	}))
	defer srv.Close()

	manager := session.NewManager()
	manager.Setup(session.Option{MaxConns: 10})

	opt := Option{Sessions: manager, BaseURL: srv.URL}
	shared, err := New(testCreds, opt)
	require.NoError(t, err)
	assert.True(t, shared.SharedSession())

	// Releasing a shared-session client never touches the shared pool.
	require.NoError(t, shared.Close())
	assert.True(t, manager.Ready())

	// The binding survives the manager closing the pool: the client keeps
	// its session reference instead of failing over.
	manager.Close()
	_, err = shared.GetServerTime(t.Context())
	require.NoError(t, err)

	own, err := New(testCreds, Option{Sessions: session.NewManager(), BaseURL: srv.URL})
	require.NoError(t, err)
	assert.False(t, own.SharedSession())
	require.NoError(t, own.Close())
}

func TestOptionDefaults(t *testing.T) {
	opt := Option{}.withDefaults()
	assert.Equal(t, defaultRecvWindow, opt.RecvWindow)
	assert.Equal(t, 15*time.Second, opt.Timeout)
	assert.NotNil(t, opt.Sessions)
}
