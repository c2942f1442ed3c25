package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
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
	"github.com/yanun0323/logs"
)

const (
	_bybitDomain = "bybit.com"

	defaultRecvWindow = 5000
	defaultTimeout    = 15 * time.Second

	// Connection limit for a client that owns its session, matching the
	// per-client pool used when no shared session is available.
	ownPoolLimit = 50

	retCodeOK            = 0
	retCodeSignatureFail = 10004
)

// Credentials identifies a Bybit account plus its environment. It is an
// immutable identity value; two equal Credentials address the same account.
type Credentials struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
}

// Option defines client construction configuration.
type Option struct {
	// RecvWindow is the signed-request receive window in milliseconds. Optional; default 5000.
	RecvWindow int
	// ReferralID is sent as the Referer header when set. Optional.
	ReferralID string
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

// baseURL resolves the Bybit V5 endpoint for the credential environment.
func baseURL(creds Credentials) string {
	var sub string
	switch {
	case creds.Demo && creds.Testnet:
		sub = "api-demo-testnet"
	case creds.Demo:
		sub = "api-demo"
	case creds.Testnet:
		sub = "api-testnet"
	default:
		sub = "api"
	}
	return "https://" + sub + "." + _bybitDomain
}

// Client is a Bybit V5 REST client. It binds to the shared session when one
// is ready at construction time and keeps that binding for its lifetime;
// otherwise it owns an individual pooled session and closes it itself.
type Client struct {
	baseURL    string
	creds      Credentials
	recvWindow int
	referralID string

	httpClient   *http.Client
	ownTransport *http.Transport // nil when bound to the shared session
}

// New constructs a client. Invalid credential shape fails with a
// construction error wrapping exception.ErrMissingCredentials.
func New(creds Credentials, opt Option) (*Client, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, errors.Wrap(exception.ErrMissingCredentials, "construct bybit client")
	}

	opt = opt.withDefaults()

	c := &Client{
		baseURL:    baseURL(creds),
		creds:      creds,
		recvWindow: opt.RecvWindow,
		referralID: opt.ReferralID,
	}
	if opt.BaseURL != "" {
		c.baseURL = opt.BaseURL
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

	// The timeout wrapper is per client; the pooled transport behind it is
	// what the shared session actually shares.
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

// Close releases the client's individually owned session. For a client
// bound to the shared session this is a no-op; only the session manager
// closes the shared resource.
func (c *Client) Close() error {
	if c.ownTransport != nil {
		c.ownTransport.CloseIdleConnections()
	}
	return nil
}

// sign computes the V5 signature:
// HMAC-SHA256(secret, timestamp + apiKey + recvWindow + payload).
func (c *Client) sign(timestamp, payload string) string {
	mac := hmac.New(sha256.New, []byte(c.creds.APISecret))
	mac.Write([]byte(timestamp + c.creds.APIKey + strconv.Itoa(c.recvWindow) + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// preparePayload renders params as the string the signature covers: a
// sorted query string for GET, compact sorted JSON for everything else.
// Nil values are dropped.
func preparePayload(method string, params map[string]any) (string, error) {
	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		filtered[k] = v
	}

	if method == http.MethodGet {
		keys := make([]string, 0, len(filtered))
		for k := range filtered {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(paramString(filtered[k]))
		}
		return sb.String(), nil
	}

	if len(filtered) == 0 {
		return "{}", nil
	}

	payload, err := jsonSorted.Marshal(filtered)
	if err != nil {
		return "", errors.Wrap(err, "marshal request payload")
	}
	return string(payload), nil
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

// jsonSorted marshals with sorted keys so the signed payload matches the
// request body byte for byte.
var jsonSorted = sonic.Config{SortMapKeys: true}.Froze()

func (c *Client) request(ctx context.Context, method, endpoint string, params map[string]any, auth bool, out any) error {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	payload, err := preparePayload(method, params)
	if err != nil {
		return err
	}

	url := c.baseURL + endpoint
	var body io.Reader
	if method == http.MethodGet {
		if payload != "" {
			url += "?" + payload
		}
	} else {
		body = bytes.NewReader([]byte(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.referralID != "" {
		req.Header.Set("Referer", c.referralID)
	}
	if auth {
		req.Header.Set("X-BAPI-API-KEY", c.creds.APIKey)
		req.Header.Set("X-BAPI-SIGN", c.sign(timestamp, payload))
		req.Header.Set("X-BAPI-SIGN-TYPE", "1")
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", strconv.Itoa(c.recvWindow))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request").With("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("bybit http status %d, method: %s, endpoint: %s", resp.StatusCode, method, endpoint)
	}

	var env envelope
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrap(err, "decode response").With("endpoint", endpoint)
	}

	if env.RetCode != retCodeOK {
		if env.RetCode == retCodeSignatureFail {
			logs.Errorf("bybit signature error (retCode 10004): %s, origin string: %q",
				env.RetMsg, timestamp+c.creds.APIKey+strconv.Itoa(c.recvWindow)+payload)
		}
		return errors.Wrap(exception.ErrInResponseError, fmt.Sprintf("retCode: %d, retMsg: %s", env.RetCode, env.RetMsg))
	}

	if out != nil && len(env.Result) > 0 {
		if err := sonic.ConfigFastest.Unmarshal(env.Result, out); err != nil {
			return errors.Wrap(err, "unmarshal result").With("endpoint", endpoint)
		}
	}

	return nil
}

// envelope is the Bybit V5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    int64           `json:"time"`
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]any, auth bool, out any) error {
	return c.request(ctx, http.MethodGet, endpoint, params, auth, out)
}

func (c *Client) post(ctx context.Context, endpoint string, params map[string]any, out any) error {
	return c.request(ctx, http.MethodPost, endpoint, params, true, out)
}
