package shopify

import (
	"context"
	"time"

	"enricher/internal/connectors"
	"enricher/internal/logger"
	"enricher/internal/models"
	shopifysvc "enricher/internal/services/shopify"
)

// ShopifyConnector reads a store catalog with one bounded GraphQL query, so
// it always reports a single page.
type ShopifyConnector struct {
	client      *shopifysvc.Client
	transformer *shopifysvc.Transformer
	first       int
	logger      *logger.Logger
	now         func() time.Time
}

func New(client *shopifysvc.Client, first int, logger *logger.Logger) *ShopifyConnector {
	if first <= 0 {
		first = 250
	}
	return &ShopifyConnector{
		client:      client,
		transformer: shopifysvc.NewTransformer(client.ShopDomain()),
		first:       first,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (sc *ShopifyConnector) Platform() models.Platform {
	return models.PlatformShopify
}

func (sc *ShopifyConnector) FetchPage(ctx context.Context, page int) (*connectors.Page, error) {
	if page > 1 {
		return &connectors.Page{Number: page, TotalPages: 1, Last: true}, nil
	}

	sc.logger.Info("Fetching products from Shopify store: %s", sc.client.ShopDomain())
	resp, err := sc.client.GetProducts(ctx, sc.first)
	if err != nil {
		return nil, connectors.Classify(models.PlatformShopify, page, err)
	}

	fetchedAt := sc.now()
	nodes := resp.Products()
	products := make([]models.Product, 0, len(nodes))
	for i := range nodes {
		p, err := sc.transformer.TransformProduct(&nodes[i], fetchedAt)
		if err != nil {
			sc.logger.Warn("Skipping Shopify product: %v", err)
			continue
		}
		products = append(products, *p)
	}

	return &connectors.Page{Number: 1, Products: products, TotalPages: 1, Last: true}, nil
}
