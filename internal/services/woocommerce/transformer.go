package woocommerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"enricher/internal/models"
)

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// TransformProduct converts a WooCommerce product to our canonical format
func (t *Transformer) TransformProduct(p *Product, fetchedAt time.Time) (*models.Product, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("woocommerce product %q has no id", p.Name)
	}

	price, regular := prices(p)

	description := p.Description
	if strings.TrimSpace(description) == "" {
		description = p.ShortDescription
	}

	var image *string
	if len(p.Images) > 0 && p.Images[0].Src != "" {
		src := p.Images[0].Src
		image = &src
	}

	// Backorders can still be bought.
	stock := models.StockInStock
	if p.StockStatus == StockOutOfStock {
		stock = models.StockOutOfStock
	}

	attributes := map[string]interface{}{}
	for _, a := range p.Attributes {
		if a.Name == "" || len(a.Options) == 0 {
			continue
		}
		attributes[strings.ToLower(a.Name)] = strings.Join(a.Options, ", ")
	}
	if p.Sku != "" {
		attributes["sku"] = p.Sku
	}
	if p.Weight != "" {
		attributes["weight"] = p.Weight
	}
	if len(p.Tags) > 0 {
		tags := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			tags = append(tags, tag.Name)
		}
		attributes["tags"] = strings.Join(tags, ", ")
	}

	categories := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		if name := strings.TrimSpace(c.Name); name != "" && !strings.EqualFold(c.Slug, "uncategorized") {
			categories = append(categories, name)
		}
	}

	return &models.Product{
		Platform:          models.PlatformWooCommerce,
		PlatformProductID: strconv.FormatInt(p.ID, 10),
		Name:              strings.TrimSpace(p.Name),
		RawDescription:    description,
		Price:             price,
		RegularPrice:      regular,
		OnSale:            p.OnSale || (regular > price && price > 0),
		Image:             image,
		URL:               p.Permalink,
		StockStatus:       stock,
		Attributes:        datatypes.JSONMap(attributes),
		SourceCategories:  datatypes.JSONSlice[string](categories),
		FetchedAt:         fetchedAt,
	}, nil
}

// prices prefers the sale price, then the active price, then the regular
// price. Empty or malformed strings count as missing.
func prices(p *Product) (price, regular float64) {
	sale := parsePrice(p.SalePrice)
	active := parsePrice(p.Price)
	regular = parsePrice(p.RegularPrice)

	switch {
	case sale > 0:
		price = sale
	case active > 0:
		price = active
	default:
		price = regular
	}
	if regular == 0 {
		regular = price
	}
	return price, regular
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
