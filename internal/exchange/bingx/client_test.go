package bingx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"main/pkg/exception"
	"main/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	APIKey:    "vstkey",
	APISecret: "vstsecret",
	Demo:      true,
}

func isolated() Option {
	return Option{Sessions: session.NewManager()}
}

func TestBaseURLSelection(t *testing.T) {
	live, err := New(Credentials{APIKey: "k", APISecret: "s"}, isolated())
	require.NoError(t, err)
	assert.Equal(t, _bingxBaseUrl, live.baseURL)

	demo, err := New(Credentials{APIKey: "k", APISecret: "s", Demo: true}, isolated())
	require.NoError(t, err)
	assert.Equal(t, _bingxBaseUrlVst, demo.baseURL)
}

func TestNewMissingCredentials(t *testing.T) {
	_, err := New(Credentials{APIKey: "k"}, isolated())
	require.ErrorIs(t, err, exception.ErrMissingCredentials)
}

func TestPreparePayload(t *testing.T) {
	payload := preparePayload(map[string]any{
		"symbol": "BTC-USDT",
		"limit":  5,
		"cursor": nil,
	}, 1696751141337)
	assert.Equal(t, "limit=5&symbol=BTC-USDT&timestamp=1696751141337", payload)

	assert.Equal(t, "timestamp=1696751141337", preparePayload(nil, 1696751141337))
}

func TestSignGolden(t *testing.T) {
	c, err := New(testCreds, isolated())
	require.NoError(t, err)

	assert.Equal(t,
		"cc213c1863c5ba4a2b65e4b643997e1ec79fbe5e056a04b513838ab3a44e4ec1",
		c.sign("symbol=BTC-USDT&timestamp=1696751141337"))
}

func TestAuthenticatedRequestSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "vstkey", r.Header.Get("X-BX-APIKEY"))

		q := r.URL.Query()
		sig := q.Get("signature")
		require.NotEmpty(t, sig)

		// The signed payload is everything before the signature parameter.
		raw := r.URL.RawQuery[:len(r.URL.RawQuery)-len("&signature="+sig)]
		mac := hmac.New(sha256.New, []byte("vstsecret"))
		mac.Write([]byte(raw))
		require.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)

		w.Write([]byte(`{"code":0,"msg":"","data":{"balances":[{"asset":"USDT","free":"100.5","locked":"0"}]}}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	balances, err := c.GetSpotBalances(t.Context())
	require.NoError(t, err)
	require.Len(t, balances.Balances, 1)
	assert.Equal(t, "USDT", balances.Balances[0].Asset)
}

func TestGetServerTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openApi/swap/v2/server/time", r.URL.Path)
		require.Empty(t, r.Header.Get("X-BX-APIKEY"))
		w.Write([]byte(`{"code":0,"msg":"","data":{"serverTime":1696751141337}}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	st, err := c.GetServerTime(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1696751141337), st.ServerTime)
}

func TestResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":100400,"msg":"invalid parameter","data":null}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	_, err = c.GetServerTime(t.Context())
	require.ErrorIs(t, err, exception.ErrInResponseError)
	assert.Contains(t, err.Error(), "invalid parameter")
}

func TestPlaceSpotOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openApi/spot/v1/trade/order", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		q := r.URL.Query()
		require.Equal(t, "BTC-USDT", q.Get("symbol"))
		require.Equal(t, "BUY", q.Get("side"))
		require.Equal(t, "LIMIT", q.Get("type"))

		w.Write([]byte(`{"code":0,"msg":"","data":{"symbol":"BTC-USDT","orderId":101,"status":"NEW"}}`))
	}))
	defer srv.Close()

	opt := isolated()
	opt.BaseURL = srv.URL
	c, err := New(testCreds, opt)
	require.NoError(t, err)

	order, err := c.PlaceSpotOrder(t.Context(), PlaceSpotOrderParams{
		Symbol:   "BTC-USDT",
		Side:     SideBuy,
		Type:     OrderTypeLimit,
		Quantity: "0.001",
		Price:    "10000",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), order.OrderID)
	assert.Equal(t, "NEW", order.Status)
}
