package homework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	logx "homeworkbot/pkg/logx"
)

const (
	// DefaultTimeout bounds one request when ClientConfig.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps the body read from the API (10MB).
	MaxResponseSize = 10 * 1024 * 1024

	// TokenType is the scheme of the Authorization header the API expects.
	TokenType = "OAuth"
)

type ClientConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// Base is the underlying transport; http.DefaultTransport when nil.
	Base http.RoundTripper
}

// Client fetches homework statuses changed since a cursor.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	log      logx.Logger
}

func NewClient(cfg ClientConfig, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", cfg.Endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: TokenType})
	return &Client{
		endpoint: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: src, Base: base},
		},
		log: log,
	}, nil
}

// Fetch asks for statuses updated at or after cursor (unix seconds). The
// body is decoded but its shape is not checked; see Validate.
func (c *Client) Fetch(ctx context.Context, cursor int64) (gjson.Result, error) {
	const op = "fetch"

	u := *c.endpoint
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(cursor, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindTransport, Op: op, Msg: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindTransport, Op: op, Msg: "request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.log.Debug("api answered",
		logx.Int("status", resp.StatusCode),
		logx.Int64("from_date", cursor),
		logx.Duration("took", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return gjson.Result{}, &Error{
			Kind:       KindBadStatus,
			Op:         op,
			Msg:        fmt.Sprintf("unexpected status %s", resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	// +1 to detect bodies over the limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindTransport, Op: op, Msg: "read body", Err: err}
	}
	if int64(len(body)) > MaxResponseSize {
		return gjson.Result{}, newError(KindTransport, op, "response exceeds %d bytes", MaxResponseSize)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, newError(KindShape, op, "response body is not valid JSON")
	}
	return gjson.ParseBytes(body), nil
}
