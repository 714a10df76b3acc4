package models

import (
	"errors"
	"strings"
)

// Platform identifies the commerce platform a catalog is pulled from.
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
)

// ParsePlatform accepts the platform names used by the onboarding flow.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shopify":
		return PlatformShopify, nil
	case "woocommerce", "woo":
		return PlatformWooCommerce, nil
	default:
		return "", errors.New("unsupported platform: " + s)
	}
}

// Credentials are pre-validated by the onboarding flow. Shopify uses
// ShopDomain + AccessToken, WooCommerce uses StoreURL + ConsumerKey +
// ConsumerSecret.
type Credentials struct {
	ShopDomain     string `json:"shop_domain,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
	StoreURL       string `json:"store_url,omitempty"`
	ConsumerKey    string `json:"consumer_key,omitempty"`
	ConsumerSecret string `json:"consumer_secret,omitempty"`
}

// Validate checks that the fields the platform needs are present.
func (c Credentials) Validate(p Platform) error {
	switch p {
	case PlatformShopify:
		if c.ShopDomain == "" || c.AccessToken == "" {
			return errors.New("shopify credentials need shop_domain and access_token")
		}
	case PlatformWooCommerce:
		if c.StoreURL == "" || c.ConsumerKey == "" || c.ConsumerSecret == "" {
			return errors.New("woocommerce credentials need store_url, consumer_key and consumer_secret")
		}
	default:
		return errors.New("unsupported platform: " + string(p))
	}
	return nil
}
