package app

import (
	"fmt"

	"enricher/internal/config"
	"enricher/internal/connectors"
	shopifyconn "enricher/internal/connectors/shopify"
	wooconn "enricher/internal/connectors/woocommerce"
	"enricher/internal/logger"
	"enricher/internal/models"
	shopifysvc "enricher/internal/services/shopify"
	woosvc "enricher/internal/services/woocommerce"
)

// NewConnectorFactory builds platform sources from per-request credentials.
func NewConnectorFactory(cfg config.SyncConfig, log *logger.Logger) connectors.Factory {
	return func(platform models.Platform, creds models.Credentials) (connectors.Source, error) {
		switch platform {
		case models.PlatformShopify:
			client := shopifysvc.NewClient(creds.ShopDomain, creds.AccessToken, cfg.HTTPTimeout, log)
			return shopifyconn.New(client, cfg.ShopifyFirst, log), nil
		case models.PlatformWooCommerce:
			client := woosvc.NewClient(creds.StoreURL, creds.ConsumerKey, creds.ConsumerSecret, cfg.HTTPTimeout, log)
			return wooconn.New(client, cfg.PageSize, log), nil
		default:
			return nil, fmt.Errorf("unsupported platform: %q", platform)
		}
	}
}
