package snapshotapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/domain"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("snapshot api: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the account-snapshot API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) sendRequest(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type wireQuote struct {
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// GetQuotes fetches quotes for symbols with a single request. Keys come back
// in whatever case the server used; the cache normalizes them.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	var result struct {
		Quotes map[string]wireQuote `json:"quotes"`
	}
	q := url.Values{"symbols": {strings.Join(symbols, ",")}}
	if err := c.sendRequest(ctx, http.MethodGet, "/api/quotes", q, &result); err != nil {
		return nil, err
	}

	quotes := make(map[string]domain.Quote, len(result.Quotes))
	for symbol, w := range result.Quotes {
		quotes[symbol] = domain.Quote{
			Symbol:        symbol,
			CurrentPrice:  w.CurrentPrice,
			ChangePercent: w.ChangePercent,
		}
	}
	return quotes, nil
}

func (c *Client) GetAccount(ctx context.Context) (*domain.AccountSnapshot, []domain.Position, error) {
	var result struct {
		Account   *domain.AccountSnapshot `json:"account"`
		Positions []domain.Position       `json:"positions"`
	}
	if err := c.sendRequest(ctx, http.MethodGet, "/api/account", nil, &result); err != nil {
		return nil, nil, err
	}
	if result.Account == nil {
		return nil, nil, fmt.Errorf("snapshot api: response has no account")
	}
	return result.Account, result.Positions, nil
}

func (c *Client) GetTradeRecords(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	var result struct {
		Records []domain.TradeRecord `json:"records"`
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.sendRequest(ctx, http.MethodGet, "/api/records", q, &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}
