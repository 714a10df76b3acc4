package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is one catalog item of a namespace, keyed by its platform ID.
type Product struct {
	ID                  string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	Namespace           string                      `json:"namespace" gorm:"not null;uniqueIndex:idx_products_ns_pid,priority:1"`
	Platform            Platform                    `json:"platform" gorm:"type:varchar(32);not null"`
	PlatformProductID   string                      `json:"platform_product_id" gorm:"not null;uniqueIndex:idx_products_ns_pid,priority:2"`
	Name                string                      `json:"name" gorm:"not null"`
	RawDescription      string                      `json:"raw_description" gorm:"type:text"`
	PlainDescription    string                      `json:"plain_description" gorm:"type:text"`
	EnrichedDescription *string                     `json:"enriched_description" gorm:"type:text"`
	Embedding           Vector                      `json:"embedding,omitempty"`
	Category            *string                     `json:"category"`
	Types               datatypes.JSONSlice[string] `json:"types"`
	Attributes          datatypes.JSONMap           `json:"attributes"`
	SourceCategories    datatypes.JSONSlice[string] `json:"source_categories"`
	Price               float64                     `json:"price" gorm:"type:decimal(12,2)"`
	RegularPrice        float64                     `json:"regular_price" gorm:"type:decimal(12,2)"`
	OnSale              bool                        `json:"on_sale"`
	Image               *string                     `json:"image"`
	URL                 string                      `json:"url"`
	StockStatus         StockStatus                 `json:"stock_status" gorm:"type:varchar(20)"`
	NotInStore          bool                        `json:"not_in_store" gorm:"index"`
	EnrichmentStatus    EnrichmentStatus            `json:"enrichment_status" gorm:"type:varchar(20);index"`
	EnrichmentError     *string                     `json:"enrichment_error,omitempty" gorm:"type:text"`
	FetchedAt           time.Time                   `json:"fetched_at"`
	EnrichedAt          *time.Time                  `json:"enriched_at"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

// Processed reports whether the product carries a complete enrichment.
func (p *Product) Processed() bool {
	return len(p.Embedding) > 0 && p.EnrichedDescription != nil
}

// AttributeStrings flattens Attributes into printable values.
func (p *Product) AttributeStrings() map[string]string {
	out := make(map[string]string, len(p.Attributes))
	for k, v := range p.Attributes {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		if v != nil {
			out[k] = toString(v)
		}
	}
	return out
}

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

type EnrichmentStatus string

const (
	EnrichmentPending  EnrichmentStatus = "pending"
	EnrichmentEnriched EnrichmentStatus = "enriched"
	EnrichmentSkipped  EnrichmentStatus = "skipped"
	EnrichmentFailed   EnrichmentStatus = "failed"
)

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.EnrichmentStatus == "" {
		p.EnrichmentStatus = EnrichmentPending
	}
	if p.StockStatus == "" {
		p.StockStatus = StockInStock
	}
	return nil
}
