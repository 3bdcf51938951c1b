package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"vigia-precos/internal/database"
	"vigia-precos/internal/monitor"
	"vigia-precos/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("página não mapeada: %s", url)
	}
	return page, nil
}

const trackedURL = "https://shop.example.com/item/1"

func newTestServer(t *testing.T) (*httptest.Server, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ff := &fakeFetcher{pages: map[string]string{
		trackedURL: `<html><head>
			<meta property="og:title" content="Produto de Teste" />
			<meta property="product:price:amount" content="1899.00" />
		</head><body>Em estoque</body></html>`,
	}}
	mon := monitor.New(db, ff, scraper.NewRegistry(), nil, time.Hour, monitor.PolicyAlways)

	ts := httptest.NewServer(New(db, mon).Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTrackValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"sem condição", map[string]interface{}{
			"url": trackedURL, "channel": "email", "endpoint": "a@b.com",
		}},
		{"canal inválido", map[string]interface{}{
			"url": trackedURL, "channel": "pombo-correio", "endpoint": "x", "target_price": 10.0,
		}},
		{"preço negativo", map[string]interface{}{
			"url": trackedURL, "channel": "email", "endpoint": "a@b.com", "target_price": -1.0,
		}},
		{"queda negativa", map[string]interface{}{
			"url": trackedURL, "channel": "email", "endpoint": "a@b.com", "drop_percent": -5.0,
		}},
		{"URL inválida", map[string]interface{}{
			"url": "não é url", "channel": "email", "endpoint": "a@b.com", "target_price": 10.0,
		}},
		{"sem endpoint", map[string]interface{}{
			"url": trackedURL, "channel": "email", "endpoint": "  ", "target_price": 10.0,
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/track", c.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestTrackCreatesProductAndWatch(t *testing.T) {
	ts, db := newTestServer(t)

	resp := postJSON(t, ts.URL+"/track", map[string]interface{}{
		"url":          trackedURL,
		"channel":      "email",
		"endpoint":     "alguem@example.com",
		"target_price": 1999.90,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		ProductID int64 `json:"product_id"`
		WatchID   int64 `json:"watch_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotZero(t, out.ProductID)
	assert.NotZero(t, out.WatchID)

	// A primeira checagem já preencheu título e preço.
	p, err := db.GetProduct(out.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", p.Domain)
	assert.Equal(t, "Produto de Teste", p.Title)
	require.NotNil(t, p.CurrentPrice)
	assert.Equal(t, 1899.00, *p.CurrentPrice)

	// Rastrear a mesma URL de novo reaproveita o produto.
	resp = postJSON(t, ts.URL+"/track", map[string]interface{}{
		"url":          trackedURL,
		"channel":      "telegram",
		"endpoint":     "123",
		"drop_percent": 10.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out2 struct {
		ProductID int64 `json:"product_id"`
		WatchID   int64 `json:"watch_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out2))
	assert.Equal(t, out.ProductID, out2.ProductID)
	assert.NotEqual(t, out.WatchID, out2.WatchID)

	watches, err := db.ListActiveWatches(out.ProductID)
	require.NoError(t, err)
	assert.Len(t, watches, 2)
}

func TestGetProductAndHistory(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/track", map[string]interface{}{
		"url":          trackedURL,
		"channel":      "email",
		"endpoint":     "a@b.com",
		"target_price": 1.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ProductID int64 `json:"product_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	get, err := http.Get(fmt.Sprintf("%s/products/%d", ts.URL, created.ProductID))
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var p struct {
		ID           int64    `json:"id"`
		Currency     string   `json:"currency"`
		CurrentPrice *float64 `json:"current_price"`
	}
	require.NoError(t, json.NewDecoder(get.Body).Decode(&p))
	assert.Equal(t, created.ProductID, p.ID)
	assert.Equal(t, "BRL", p.Currency)
	require.NotNil(t, p.CurrentPrice)
	assert.Equal(t, 1899.00, *p.CurrentPrice)

	hist, err := http.Get(fmt.Sprintf("%s/products/%d/history?days=7", ts.URL, created.ProductID))
	require.NoError(t, err)
	defer hist.Body.Close()
	require.Equal(t, http.StatusOK, hist.StatusCode)

	var points []struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&points))
	require.Len(t, points, 1)
	assert.Equal(t, 1899.00, points[0].Price)
}

func TestGetProductNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/products/9999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScrapeNow(t *testing.T) {
	ts, db := newTestServer(t)

	domain, err := scraper.DomainForURL(trackedURL)
	require.NoError(t, err)
	p, err := db.CreateProduct(trackedURL, domain)
	require.NoError(t, err)

	resp, err := http.Post(fmt.Sprintf("%s/scrape-now?product_id=%d", ts.URL, p.ID), "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		OK      bool `json:"ok"`
		Updated bool `json:"updated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.OK)
	assert.True(t, out.Updated)

	bad, err := http.Post(ts.URL+"/scrape-now?product_id=424242", "application/json", nil)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusNotFound, bad.StatusCode)
}
