package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"enricher/internal/connectors"
	"enricher/internal/logger"
)

const apiVersion = "2024-07"

const productsQuery = `query Products($first: Int!) {
  products(first: $first) {
    edges {
      node {
        id
        legacyResourceId
        title
        handle
        descriptionHtml
        onlineStoreUrl
        productType
        vendor
        tags
        totalInventory
        featuredImage { url altText }
        images(first: 1) { edges { node { url altText } } }
        variants(first: 1) {
          edges { node { price compareAtPrice inventoryQuantity availableForSale inventoryPolicy sku } }
        }
        collections(first: 5) { edges { node { title } } }
        options { name values }
      }
    }
    pageInfo { hasNextPage }
  }
}`

type Client struct {
	shopDomain  string
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      *logger.Logger
}

func NewClient(shopDomain, accessToken string, timeout time.Duration, logger *logger.Logger) *Client {
	domain := ShopHost(shopDomain)
	return &Client{
		shopDomain:  domain,
		accessToken: accessToken,
		baseURL:     "https://" + domain,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ShopDomain is the normalized myshopify host.
func (c *Client) ShopDomain() string {
	return c.shopDomain
}

// ShopHost accepts "my-shop", "my-shop.myshopify.com" or a full URL.
func ShopHost(shop string) string {
	shop = strings.TrimSpace(shop)
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimRight(shop, "/")
	if shop != "" && !strings.Contains(shop, ".") {
		shop += ".myshopify.com"
	}
	return shop
}

// GetProducts runs the bounded catalog query for the first `first` products.
func (c *Client) GetProducts(ctx context.Context, first int) (*ProductsResponse, error) {
	payload, err := json.Marshal(graphQLRequest{
		Query:     productsQuery,
		Variables: map[string]interface{}{"first": first},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add authentication header
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &connectors.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var productsResp ProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&productsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(productsResp.Errors) > 0 {
		first := productsResp.Errors[0]
		if first.Extensions.Code == "ACCESS_DENIED" {
			return nil, &connectors.StatusError{StatusCode: http.StatusForbidden, Body: first.Message}
		}
		return nil, fmt.Errorf("graphql error: %s", first.Message)
	}

	if productsResp.Data.Products.PageInfo.HasNextPage {
		c.logger.Warn("shopify %s: catalog larger than %d products, remaining products are not fetched", c.shopDomain, first)
	}
	return &productsResp, nil
}
