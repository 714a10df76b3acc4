package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"enricher/internal/logger"
	"enricher/internal/models"
)

const upsertBatchSize = 100

// refreshColumns are the basic fields a catalog refresh may overwrite.
// Identity and enrichment columns are never part of this list.
var refreshColumns = []string{
	"platform",
	"name",
	"raw_description",
	"plain_description",
	"price",
	"regular_price",
	"on_sale",
	"image",
	"url",
	"stock_status",
	"attributes",
	"source_categories",
	"not_in_store",
	"fetched_at",
}

// descriptionChanged is true when a refresh brings a new raw description, in
// which case the stored enrichment no longer describes the product.
const descriptionChanged = "COALESCE(products.raw_description, '') <> COALESCE(excluded.raw_description, '')"

// EnrichmentUpdate is the phase-2 write for one product.
type EnrichmentUpdate struct {
	Status              models.EnrichmentStatus
	EnrichedDescription string
	Embedding           models.Vector
	Category            *string
	Types               []string
	Error               string
}

// CatalogStore persists products of every namespace.
type CatalogStore struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewCatalogStore(db *gorm.DB, log *logger.Logger) *CatalogStore {
	return &CatalogStore{db: db, logger: log}
}

func refreshConflictClause() clause.OnConflict {
	set := clause.AssignmentColumns(refreshColumns)
	set = append(set,
		clause.Assignment{
			Column: clause.Column{Name: "enriched_description"},
			Value:  gorm.Expr("CASE WHEN " + descriptionChanged + " THEN NULL ELSE products.enriched_description END"),
		},
		clause.Assignment{
			Column: clause.Column{Name: "embedding"},
			Value:  gorm.Expr("CASE WHEN " + descriptionChanged + " THEN NULL ELSE products.embedding END"),
		},
		clause.Assignment{
			Column: clause.Column{Name: "category"},
			Value:  gorm.Expr("CASE WHEN " + descriptionChanged + " THEN NULL ELSE products.category END"),
		},
		// types holds a JSON array; JSON null keeps the column scannable.
		clause.Assignment{
			Column: clause.Column{Name: "types"},
			Value:  gorm.Expr("CASE WHEN " + descriptionChanged + " THEN 'null' ELSE products.types END"),
		},
		clause.Assignment{
			Column: clause.Column{Name: "enrichment_status"},
			Value:  gorm.Expr("CASE WHEN "+descriptionChanged+" THEN ? ELSE products.enrichment_status END", models.EnrichmentPending),
		},
	)
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "platform_product_id"}},
		DoUpdates: set,
	}
}

// Upsert writes the basic fields of one product, keyed by namespace and
// platform product ID. A unique-key race with a concurrent writer is retried
// once; the later write wins.
func (s *CatalogStore) Upsert(ctx context.Context, p *models.Product) error {
	err := s.upsertOne(ctx, p)
	if err != nil && isWriteConflict(err) {
		s.logger.Warn("write conflict on product %s/%s, retrying", p.Namespace, p.PlatformProductID)
		err = s.upsertOne(ctx, p)
	}
	return err
}

func (s *CatalogStore) upsertOne(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Clauses(refreshConflictClause()).Create(p).Error
}

// BulkUpsert is the phase-1 catalog refresh: every fetched product is written
// in one transaction, batched by 100 rows.
func (s *CatalogStore) BulkUpsert(ctx context.Context, namespace string, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	products = dedupe(products)
	for i := range products {
		products[i].Namespace = namespace
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(refreshConflictClause()).CreateInBatches(&products, upsertBatchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("bulk upsert %d products: %w", len(products), err)
	}
	return len(products), nil
}

// dedupe keeps the last occurrence of each platform ID. A single upsert
// statement may not touch the same row twice.
func dedupe(products []models.Product) []models.Product {
	index := make(map[string]int, len(products))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if i, ok := index[p.PlatformProductID]; ok {
			out[i] = p
			continue
		}
		index[p.PlatformProductID] = len(out)
		out = append(out, p)
	}
	return out
}

// MarkMissing flags products that the latest fetch no longer returned.
// Nothing is deleted; the rows simply drop out of the enrichment queue.
func (s *CatalogStore) MarkMissing(ctx context.Context, namespace string, seen []string) (int64, error) {
	if len(seen) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("namespace = ? AND not_in_store = ? AND platform_product_id NOT IN ?", namespace, false, seen).
		Update("not_in_store", true)
	return res.RowsAffected, res.Error
}

// Pending returns the in-store products of a namespace that still lack an
// embedding or an enriched description.
func (s *CatalogStore) Pending(ctx context.Context, namespace string) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND not_in_store = ?", namespace, false).
		Where("embedding IS NULL OR enriched_description IS NULL").
		Order("created_at, platform_product_id").
		Find(&products).Error
	return products, err
}

// SaveEnrichment is the phase-2 write. Enrichment fields are only written
// together, when the product was fully enriched; otherwise just the status
// and error are recorded so the product stays pending for the next pass.
func (s *CatalogStore) SaveEnrichment(ctx context.Context, namespace, platformProductID string, u EnrichmentUpdate) error {
	updates := map[string]interface{}{
		"enrichment_status": u.Status,
	}
	if u.Error != "" {
		updates["enrichment_error"] = u.Error
	} else {
		updates["enrichment_error"] = nil
	}

	if u.Status == models.EnrichmentEnriched {
		now := time.Now().UTC()
		updates["enriched_description"] = u.EnrichedDescription
		updates["embedding"] = u.Embedding
		updates["category"] = u.Category
		updates["types"] = datatypes.JSONSlice[string](u.Types)
		updates["enriched_at"] = now
	}

	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("namespace = ? AND platform_product_id = ?", namespace, platformProductID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s/%s: %w", namespace, platformProductID, gorm.ErrRecordNotFound)
	}
	return nil
}

// ListFilter narrows List to a status; empty means all products.
type ListFilter struct {
	Status models.EnrichmentStatus
	Page   int
	Limit  int
}

func (s *CatalogStore) List(ctx context.Context, namespace string, f ListFilter) ([]models.Product, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Product{}).Where("namespace = ?", namespace)
	if f.Status != "" {
		query = query.Where("enrichment_status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := query.Order("created_at, platform_product_id").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&products).Error
	return products, total, err
}

// Get loads one product by its platform ID.
func (s *CatalogStore) Get(ctx context.Context, namespace, platformProductID string) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND platform_product_id = ?", namespace, platformProductID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Count returns the number of in-store products of a namespace.
func (s *CatalogStore) Count(ctx context.Context, namespace string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("namespace = ? AND not_in_store = ?", namespace, false).
		Count(&n).Error
	return n, err
}
