package shopify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"enricher/internal/models"
)

type Transformer struct {
	shopDomain string
}

func NewTransformer(shopDomain string) *Transformer {
	return &Transformer{shopDomain: ShopHost(shopDomain)}
}

// TransformProduct converts a Shopify product to our canonical format
func (t *Transformer) TransformProduct(p *Product, fetchedAt time.Time) (*models.Product, error) {
	id := p.LegacyResourceID
	if id == "" {
		id = p.ID
	}
	if id == "" {
		return nil, fmt.Errorf("shopify product %q has no id", p.Title)
	}

	// Primary variant carries price and stock
	var primary *Variant
	if len(p.Variants.Edges) > 0 {
		primary = &p.Variants.Edges[0].Node
	}

	var price, regular float64
	onSale := false
	if primary != nil {
		var err error
		price, err = parsePrice(primary.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price format for product %s: %w", id, err)
		}
		regular = price
		if primary.CompareAtPrice != nil {
			if compareAt, err := parsePrice(*primary.CompareAtPrice); err == nil && compareAt > price {
				regular = compareAt
				onSale = true
			}
		}
	}

	attributes := map[string]interface{}{}
	if p.Vendor != "" {
		attributes["vendor"] = p.Vendor
	}
	if p.ProductType != "" {
		attributes["product_type"] = p.ProductType
	}
	if len(p.Tags) > 0 {
		attributes["tags"] = strings.Join(p.Tags, ", ")
	}
	if primary != nil && primary.Sku != "" {
		attributes["sku"] = primary.Sku
	}
	for _, opt := range p.Options {
		// Single-value "Title" option is Shopify's placeholder for no options.
		if strings.EqualFold(opt.Name, "Title") && len(opt.Values) == 1 {
			continue
		}
		attributes[strings.ToLower(opt.Name)] = strings.Join(opt.Values, ", ")
	}

	return &models.Product{
		Platform:          models.PlatformShopify,
		PlatformProductID: id,
		Name:              strings.TrimSpace(p.Title),
		RawDescription:    p.DescriptionHTML,
		Price:             price,
		RegularPrice:      regular,
		OnSale:            onSale,
		Image:             t.image(p),
		URL:               t.storefrontURL(p),
		StockStatus:       stockStatus(p, primary),
		Attributes:        datatypes.JSONMap(attributes),
		SourceCategories:  datatypes.JSONSlice[string](categories(p)),
		FetchedAt:         fetchedAt,
	}, nil
}

func (t *Transformer) image(p *Product) *string {
	if p.FeaturedImage != nil && p.FeaturedImage.URL != "" {
		url := p.FeaturedImage.URL
		return &url
	}
	if len(p.Images.Edges) > 0 && p.Images.Edges[0].Node.URL != "" {
		url := p.Images.Edges[0].Node.URL
		return &url
	}
	return nil
}

func (t *Transformer) storefrontURL(p *Product) string {
	if p.OnlineStoreURL != nil && *p.OnlineStoreURL != "" {
		return *p.OnlineStoreURL
	}
	return fmt.Sprintf("https://%s/products/%s", t.shopDomain, p.Handle)
}

// stockStatus treats anything sellable (including oversell / backorder) as
// in stock.
func stockStatus(p *Product, primary *Variant) models.StockStatus {
	if primary != nil {
		if primary.AvailableForSale || strings.EqualFold(primary.InventoryPolicy, "CONTINUE") {
			return models.StockInStock
		}
		if primary.InventoryQuantity != nil && *primary.InventoryQuantity > 0 {
			return models.StockInStock
		}
		return models.StockOutOfStock
	}
	if p.TotalInventory != nil && *p.TotalInventory <= 0 {
		return models.StockOutOfStock
	}
	return models.StockInStock
}

func categories(p *Product) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, name)
	}
	add(p.ProductType)
	for _, e := range p.Collections.Edges {
		add(e.Node.Title)
	}
	return out
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
