package woocommerce

import (
	"context"
	"time"

	"enricher/internal/connectors"
	"enricher/internal/logger"
	"enricher/internal/models"
	woosvc "enricher/internal/services/woocommerce"
)

// WooCommerceConnector pages through the REST products listing.
type WooCommerceConnector struct {
	client      *woosvc.Client
	transformer *woosvc.Transformer
	perPage     int
	logger      *logger.Logger
	now         func() time.Time
}

func New(client *woosvc.Client, perPage int, logger *logger.Logger) *WooCommerceConnector {
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	return &WooCommerceConnector{
		client:      client,
		transformer: woosvc.NewTransformer(),
		perPage:     perPage,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (wc *WooCommerceConnector) Platform() models.Platform {
	return models.PlatformWooCommerce
}

func (wc *WooCommerceConnector) FetchPage(ctx context.Context, page int) (*connectors.Page, error) {
	resp, err := wc.client.GetProducts(ctx, wc.perPage, page)
	if err != nil {
		return nil, connectors.Classify(models.PlatformWooCommerce, page, err)
	}

	fetchedAt := wc.now()
	products := make([]models.Product, 0, len(resp.Products))
	for i := range resp.Products {
		p, err := wc.transformer.TransformProduct(&resp.Products[i], fetchedAt)
		if err != nil {
			wc.logger.Warn("Skipping WooCommerce product: %v", err)
			continue
		}
		products = append(products, *p)
	}

	last := len(resp.Products) == 0
	if resp.TotalPages > 0 && page >= resp.TotalPages {
		last = true
	}

	return &connectors.Page{
		Number:     page,
		Products:   products,
		TotalPages: resp.TotalPages,
		Last:       last,
	}, nil
}
