package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"enricher/internal/connectors"
	"enricher/internal/logger"
)

type Client struct {
	storeURL       string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	logger         *logger.Logger
}

func NewClient(storeURL, consumerKey, consumerSecret string, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{
		storeURL:       NormalizeStoreURL(storeURL),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// NormalizeStoreURL adds a scheme when missing and drops trailing slashes.
func NormalizeStoreURL(u string) string {
	u = strings.TrimSpace(u)
	if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

// GetProducts fetches one page of published products.
func (c *Client) GetProducts(ctx context.Context, perPage, page int) (*ProductsPage, error) {
	url := fmt.Sprintf("%s/wp-json/wc/v3/products", c.storeURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("status", "publish")
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &connectors.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ProductsPage{
		Products:   products,
		Total:      headerInt(resp.Header, "X-WP-Total"),
		TotalPages: headerInt(resp.Header, "X-WP-TotalPages"),
	}, nil
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
	if err != nil {
		return 0
	}
	return n
}
