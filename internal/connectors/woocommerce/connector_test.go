package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enricher/internal/connectors"
	"enricher/internal/logger"
	"enricher/internal/models"
	woosvc "enricher/internal/services/woocommerce"
)

// fakeStore serves `total` products in pages of per_page, like the WC REST API.
func fakeStore(t *testing.T, total int, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck_test" || pass != "cs_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n <= failFirst {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages := (total + perPage - 1) / perPage

		var products []woosvc.Product
		for i := (page - 1) * perPage; i < total && i < page*perPage; i++ {
			products = append(products, woosvc.Product{
				ID:           int64(i + 1),
				Name:         fmt.Sprintf("Product %d", i+1),
				Permalink:    fmt.Sprintf("https://shop.example/p/%d", i+1),
				Description:  "<p>Fresh item</p>",
				Price:        "8.00",
				RegularPrice: "10.00",
				SalePrice:    "8.00",
				OnSale:       true,
				StockStatus:  woosvc.StockBackorder,
				Categories:   []woosvc.Term{{Name: "Pantry", Slug: "pantry"}, {Name: "Uncategorized", Slug: "uncategorized"}},
				Images:       []woosvc.Image{{Src: "https://shop.example/img.jpg"}},
				Attributes:   []woosvc.Attribute{{Name: "Weight", Options: []string{"500g"}}},
			})
		}
		if products == nil {
			products = []woosvc.Product{}
		}

		w.Header().Set("X-WP-Total", strconv.Itoa(total))
		w.Header().Set("X-WP-TotalPages", strconv.Itoa(pages))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(products)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchAll_ThreePages(t *testing.T) {
	srv, calls := fakeStore(t, 250, 0)
	client := woosvc.NewClient(srv.URL, "ck_test", "cs_test", 5*time.Second, logger.Nop())
	src := New(client, 100, logger.Nop())

	products, err := connectors.FetchAll(context.Background(), src, connectors.RetryPolicy{Attempts: 1}, logger.Nop())
	require.NoError(t, err)
	assert.Len(t, products, 250)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))

	first := products[0]
	assert.Equal(t, models.PlatformWooCommerce, first.Platform)
	assert.Equal(t, "1", first.PlatformProductID)
	assert.Equal(t, 8.0, first.Price)
	assert.Equal(t, 10.0, first.RegularPrice)
	assert.True(t, first.OnSale)
	assert.Equal(t, models.StockInStock, first.StockStatus)
	assert.Equal(t, []string{"Pantry"}, []string(first.SourceCategories))
	assert.Equal(t, "500g", first.Attributes["weight"])
	require.NotNil(t, first.Image)
}

func TestFetchAll_StopsOnEmptyPage(t *testing.T) {
	srv, calls := fakeStore(t, 0, 0)
	client := woosvc.NewClient(srv.URL, "ck_test", "cs_test", 5*time.Second, logger.Nop())

	products, err := connectors.FetchAll(context.Background(), New(client, 100, logger.Nop()), connectors.RetryPolicy{Attempts: 1}, logger.Nop())
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestFetchAll_Unauthorized(t *testing.T) {
	srv, calls := fakeStore(t, 10, 0)
	client := woosvc.NewClient(srv.URL, "ck_test", "wrong", 5*time.Second, logger.Nop())

	_, err := connectors.FetchAll(context.Background(), New(client, 100, logger.Nop()), connectors.RetryPolicy{Attempts: 3}, logger.Nop())
	assert.ErrorIs(t, err, connectors.ErrUnauthorized)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls), "auth failures are not retried")
}

func TestFetchAll_RetriesTransientFailure(t *testing.T) {
	srv, _ := fakeStore(t, 5, 2)
	client := woosvc.NewClient(srv.URL, "ck_test", "cs_test", 5*time.Second, logger.Nop())

	products, err := connectors.FetchAll(context.Background(), New(client, 100, logger.Nop()),
		connectors.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, logger.Nop())
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestFetchAll_GivesUpAfterRetries(t *testing.T) {
	srv, calls := fakeStore(t, 5, 10)
	client := woosvc.NewClient(srv.URL, "ck_test", "cs_test", 5*time.Second, logger.Nop())

	_, err := connectors.FetchAll(context.Background(), New(client, 100, logger.Nop()),
		connectors.RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, logger.Nop())
	var fetchErr *connectors.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Equal(t, 1, fetchErr.Page)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}
