package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"enricher/internal/logger"
	"enricher/internal/models"
)

// ErrUnauthorized means the platform rejected the credentials. It aborts the
// whole sync and is never retried.
var ErrUnauthorized = errors.New("platform rejected credentials")

// FetchError is a failed page fetch that may succeed on retry.
type FetchError struct {
	Platform   models.Platform
	Page       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetch page %d failed with status %d: %v", e.Platform, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: fetch page %d failed: %v", e.Platform, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is returned by the platform clients for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

// Classify turns a client error into ErrUnauthorized or a *FetchError.
func Classify(platform models.Platform, page int, err error) error {
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%s: %w (status %d)", platform, ErrUnauthorized, statusErr.StatusCode)
		}
		return &FetchError{Platform: platform, Page: page, StatusCode: statusErr.StatusCode, Err: err}
	}
	return &FetchError{Platform: platform, Page: page, Err: err}
}

// Page is one page of a platform catalog. Pages are numbered from 1.
type Page struct {
	Number     int
	Products   []models.Product
	TotalPages int
	Last       bool
}

// Source fetches a platform catalog page by page. FetchPage is restartable:
// the same page number can be requested again after a failure.
type Source interface {
	Platform() models.Platform
	FetchPage(ctx context.Context, page int) (*Page, error)
}

// Factory builds the Source for pre-validated credentials.
type Factory func(platform models.Platform, creds models.Credentials) (Source, error)

// RetryPolicy bounds retries of a single failing page.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// FetchAll walks every page of src. A page that keeps failing after
// policy.Attempts tries aborts the walk, as does ErrUnauthorized on any try.
func FetchAll(ctx context.Context, src Source, policy RetryPolicy, log *logger.Logger) ([]models.Product, error) {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	var all []models.Product
	for page := 1; ; page++ {
		p, err := fetchWithRetry(ctx, src, page, policy, log)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Products...)
		log.Debug("%s: fetched page %d (%d products)", src.Platform(), page, len(p.Products))

		if p.Last {
			break
		}
		if p.TotalPages > 0 && page >= p.TotalPages {
			break
		}
	}
	return all, nil
}

func fetchWithRetry(ctx context.Context, src Source, page int, policy RetryPolicy, log *logger.Logger) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		p, err := src.FetchPage(ctx, page)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		lastErr = err
		if attempt == policy.Attempts {
			break
		}

		log.Warn("%s: page %d attempt %d/%d failed: %v", src.Platform(), page, attempt, policy.Attempts, err)
		delay := policy.Backoff << (attempt - 1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
