// Package ebay searches eBay Browse API listings for comparable cards.
package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.ebay.com"
	defaultHTTPTimeout = 15 * time.Second

	// PublicScope is the client-credentials scope for public Browse data.
	PublicScope = "https://api.ebay.com/oauth/api_scope"
)

type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Client talks to the Browse API using application tokens from an injected
// TokenCache.
type Client struct {
	cfg        Config
	tokens     *TokenCache
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, tokens *TokenCache, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if tokens == nil {
		tokens = NewTokenCache()
	}
	c := &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-2xx answer from eBay.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ebay %s error (%d): %s", e.Op, e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken returns a cached application token for scope, requesting a new
// one with the client-credentials grant when needed.
func (c *Client) AccessToken(ctx context.Context, scope string) (string, error) {
	if tok, ok := c.tokens.Get(scope); ok {
		return tok, nil
	}
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", errors.New("ebay token: client credentials required")
	}

	form := url.Values{"grant_type": {"client_credentials"}, "scope": {scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/identity/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("ebay token: new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.do(req, "token", &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("ebay token: empty access token")
	}
	c.tokens.Put(scope, tok.AccessToken, time.Duration(tok.ExpiresIn)*time.Second)
	return tok.AccessToken, nil
}

// Search runs a keyword search on the given marketplace and returns the raw
// item summaries.
func (c *Client) Search(ctx context.Context, query, marketplaceID string, limit int) ([]ItemSummary, error) {
	token, err := c.AccessToken(ctx, PublicScope)
	if err != nil {
		return nil, err
	}

	params := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/buy/browse/v1/item_summary/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ebay search: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplaceID)

	var resp searchResponse
	if err := c.do(req, "search", &resp); err != nil {
		return nil, err
	}
	return resp.ItemSummaries, nil
}

func (c *Client) do(req *http.Request, op string, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ebay %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ebay %s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("ebay %s: decode response: %w", op, err)
	}
	return nil
}
