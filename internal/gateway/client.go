package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to one merchant instance of the payment gateway. All calls are
// sequential; the engine deliberately does not fan out across pages to stay
// inside the gateway's rate limits.
type Client struct {
	baseURL    string
	instance   string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewClient(baseURL, instance, apiKey string, log *logrus.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		instance: instance,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ListPage fetches one page of a resource collection. limit is clamped to
// MaxPageSize because the gateway rejects oversized requests outright.
func (c *Client) ListPage(ctx context.Context, resource Resource, offset, limit int) ([]Record, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := url.Values{}
	q.Set("instance", c.instance)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/%s/?%s", c.baseURL, resource, q.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s page at offset %d: %w", resource, offset, err)
	}
	for i := range records {
		records[i].Resource = resource
	}
	return records, nil
}

// GetTransaction retrieves a single transaction by gateway id. Used as the
// comparator's last-resort lookup when a reference never shows up in the
// paginated collections.
func (c *Client) GetTransaction(ctx context.Context, id int64) (*Record, error) {
	q := url.Values{}
	q.Set("instance", c.instance)

	endpoint := fmt.Sprintf("%s/%s/%d/?%s", c.baseURL, ResourceTransaction, id, q.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// Single-record retrieval still answers with a one-element array.
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode transaction %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	records[0].Resource = ResourceTransaction
	return &records[0], nil
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return json.RawMessage("[]"), nil
	}
	if resp.StatusCode != http.StatusOK {
		c.log.WithFields(logrus.Fields{
			"component": "gateway",
			"status":    resp.StatusCode,
			"url":       req.URL.Path,
		}).Warn("gateway returned non-OK status")
		return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode gateway envelope: %w", err)
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("gateway error: %s", env.Message)
	}
	return env.Data, nil
}
