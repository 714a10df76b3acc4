package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"enricher/internal/logger"
	"enricher/internal/models"
)

var (
	ErrMissingID    = errors.New("missing platform product id")
	ErrMissingName  = errors.New("missing product name")
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidURL   = errors.New("invalid url")
)

type Validator struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *Validator {
	return &Validator{
		logger: logger,
	}
}

// ValidateProduct checks a fetched product before it is written. Fixable
// problems (blank image, untrimmed name) are repaired in place.
func (v *Validator) ValidateProduct(p *models.Product) error {
	p.PlatformProductID = strings.TrimSpace(p.PlatformProductID)
	if p.PlatformProductID == "" {
		return ErrMissingID
	}

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("product %s: %w", p.PlatformProductID, ErrMissingName)
	}

	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return fmt.Errorf("product %s: %w %v", p.PlatformProductID, ErrInvalidPrice, p.Price)
	}
	if p.RegularPrice < p.Price {
		p.RegularPrice = p.Price
	}

	if p.URL != "" && !validURL(p.URL) {
		return fmt.Errorf("product %s: %w %q", p.PlatformProductID, ErrInvalidURL, p.URL)
	}
	if p.Image != nil && !validURL(*p.Image) {
		v.logger.Debug("Dropping invalid image url for product %s", p.PlatformProductID)
		p.Image = nil
	}

	if p.StockStatus == "" {
		p.StockStatus = models.StockInStock
	}
	return nil
}

// ValidateAll returns the valid products and one error per rejected product.
func (v *Validator) ValidateAll(products []models.Product) ([]models.Product, []error) {
	valid := make([]models.Product, 0, len(products))
	var errs []error
	for i := range products {
		if err := v.ValidateProduct(&products[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, products[i])
	}
	return valid, errs
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
