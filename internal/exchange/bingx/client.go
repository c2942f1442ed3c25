package bingx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"main/pkg/exception"
	"main/pkg/session"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const (
	_bingxBaseUrl    = "https://open-api.bingx.com"
	_bingxBaseUrlVst = "https://open-api-vst.bingx.com"

	defaultRecvWindow = 5000
	defaultTimeout    = 15 * time.Second
	ownPoolLimit      = 50
)

// Credentials identifies a BingX account. Demo routes to the VST endpoint.
type Credentials struct {
	APIKey    string
	APISecret string
	Demo      bool
}

// Option defines client construction configuration.
type Option struct {
	// RecvWindow is the signed-request receive window in milliseconds. Optional; default 5000.
	RecvWindow int
	// Timeout bounds every request. Optional; default 15s.
	Timeout time.Duration
	// BaseURL overrides the environment-derived endpoint. Optional.
	BaseURL string
	// Sessions is the shared session manager to consult. Optional; default session.Default().
	Sessions *session.Manager
}

func (opt Option) withDefaults() Option {
	if opt.RecvWindow <= 0 {
		opt.RecvWindow = defaultRecvWindow
	}
	if opt.Timeout <= 0 {
		opt.Timeout = defaultTimeout
	}
	if opt.Sessions == nil {
		opt.Sessions = session.Default()
	}
	return opt
}

// Client is a BingX REST client with the same shared-session binding rules
// as the Bybit client: bound at construction, kept for its lifetime.
type Client struct {
	baseURL    string
	creds      Credentials
	recvWindow int

	httpClient   *http.Client
	ownTransport *http.Transport // nil when bound to the shared session
}

// New constructs a client. Invalid credential shape fails with a
// construction error wrapping exception.ErrMissingCredentials.
func New(creds Credentials, opt Option) (*Client, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, errors.Wrap(exception.ErrMissingCredentials, "construct bingx client")
	}

	opt = opt.withDefaults()

	base := _bingxBaseUrl
	if creds.Demo {
		base = _bingxBaseUrlVst
	}
	if opt.BaseURL != "" {
		base = opt.BaseURL
	}

	c := &Client{
		baseURL:    base,
		creds:      creds,
		recvWindow: opt.RecvWindow,
	}

	var transport http.RoundTripper
	if shared, ok := opt.Sessions.Get(); ok {
		transport = shared.Client().Transport
	} else {
		own := &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			MaxIdleConns:        ownPoolLimit,
			MaxIdleConnsPerHost: ownPoolLimit,
			MaxConnsPerHost:     ownPoolLimit,
			ForceAttemptHTTP2:   true,
		}
		c.ownTransport = own
		transport = own
	}
	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   opt.Timeout,
	}

	return c, nil
}

// SharedSession reports whether the client is bound to the shared session.
func (c *Client) SharedSession() bool {
	return c.ownTransport == nil
}

// Close releases the client's individually owned session; a no-op for
// shared-session clients.
func (c *Client) Close() error {
	if c.ownTransport != nil {
		c.ownTransport.CloseIdleConnections()
	}
	return nil
}

// sign computes HMAC-SHA256 over the sorted query payload.
func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.creds.APISecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// preparePayload renders params as the sorted "k=v&...&timestamp=ts"
// string BingX signs. The timestamp always terminates the payload.
func preparePayload(params map[string]any, timestamp int64) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(paramString(params[k]))
		sb.WriteByte('&')
	}
	sb.WriteString("timestamp=")
	sb.WriteString(strconv.FormatInt(timestamp, 10))
	return sb.String()
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := sonic.ConfigFastest.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// envelope is the BingX response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) request(ctx context.Context, method, endpoint string, params map[string]any, auth bool, out any) error {
	if params == nil {
		params = map[string]any{}
	}

	url := c.baseURL + endpoint
	if auth {
		payload := preparePayload(params, time.Now().UnixMilli())
		url += "?" + payload + "&signature=" + c.sign(payload)
	} else if q := preparePayload(params, time.Now().UnixMilli()); q != "" {
		url += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("X-BX-APIKEY", c.creds.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request").With("endpoint", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("bingx http status %d, method: %s, endpoint: %s", resp.StatusCode, method, endpoint)
	}

	var env envelope
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrap(err, "decode response").With("endpoint", endpoint)
	}

	if env.Code != 0 {
		return errors.Wrap(exception.ErrInResponseError, fmt.Sprintf("code: %d, msg: %s", env.Code, env.Msg))
	}

	if out != nil && len(env.Data) > 0 {
		if err := sonic.ConfigFastest.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "unmarshal data").With("endpoint", endpoint)
		}
	}

	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]any, auth bool, out any) error {
	return c.request(ctx, http.MethodGet, endpoint, params, auth, out)
}

func (c *Client) post(ctx context.Context, endpoint string, params map[string]any, out any) error {
	return c.request(ctx, http.MethodPost, endpoint, params, true, out)
}
