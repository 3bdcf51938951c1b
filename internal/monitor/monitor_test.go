package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vigia-precos/internal/models"
	"vigia-precos/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("página não mapeada: %s", url)
	}
	return page, nil
}

type notification struct {
	watch    models.Watch
	product  models.Product
	newPrice float64
	reason   string
}

type spyNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (s *spyNotifier) Notify(w models.Watch, p models.Product, newPrice float64, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, notification{w, p, newPrice, reason})
}

func (s *spyNotifier) all() []notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification(nil), s.calls...)
}

func productPage(title string, price string) string {
	return fmt.Sprintf(`<html><head>
		<meta property="og:title" content="%s" />
		<meta property="product:price:amount" content="%s" />
	</head><body>Em estoque</body></html>`, title, price)
}

// Cenário completo: rastrear URL nova com preço alvo, checar sob demanda,
// registrar observação, atualizar preço corrente e disparar o watch.
func TestEndToEndTrackAndCheck(t *testing.T) {
	db := newTestDB(t)

	url := "https://shop.example.com/item/42"
	ff := &fakeFetcher{pages: map[string]string{
		url: productPage("Smart TV 55", "1899.00"),
	}}
	spy := &spyNotifier{}
	m := New(db, ff, scraper.NewRegistry(), spy, time.Hour, PolicyAlways)
	m.delay = 0

	p := newProduct(t, db, url)
	target := 1999.90
	_, err := db.CreateWatch(models.Watch{ProductID: p.ID, Channel: "telegram", TargetPrice: &target, Endpoint: "123"})
	require.NoError(t, err)

	updated, err := m.CheckProduct(p.ID)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := db.GetProduct(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	assert.Equal(t, 1899.00, *got.CurrentPrice)
	assert.Equal(t, "Smart TV 55", got.Title)
	require.NotNil(t, got.InStock)
	assert.True(t, *got.InStock)

	obs, err := db.ListObservationsSince(p.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 1899.00, obs[0].Price)

	calls := spy.all()
	require.Len(t, calls, 1)
	assert.Equal(t, 1899.00, calls[0].newPrice)
	assert.Contains(t, calls[0].reason, "1999.90")
}

// Falha em um produto não interrompe os demais no mesmo ciclo.
func TestCycleIsolatesFailures(t *testing.T) {
	db := newTestDB(t)

	badURL := "https://fora-do-ar.com/p/1"
	goodURL := "https://shop.example.com/p/2"
	ff := &fakeFetcher{
		pages: map[string]string{goodURL: productPage("Produto Bom", "99.90")},
		errs:  map[string]error{badURL: fmt.Errorf("connection refused")},
	}
	m := New(db, ff, scraper.NewRegistry(), &spyNotifier{}, time.Hour, PolicyAlways)
	m.delay = 0

	newProduct(t, db, badURL)
	good := newProduct(t, db, goodURL)

	m.CheckAll()

	got, err := db.GetProduct(good.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	assert.Equal(t, 99.90, *got.CurrentPrice)
}

// Erro de busca nunca vira sucesso silencioso na checagem sob demanda.
func TestCheckProductSurfacesFetchError(t *testing.T) {
	db := newTestDB(t)

	url := "https://fora-do-ar.com/p/1"
	ff := &fakeFetcher{errs: map[string]error{url: fmt.Errorf("timeout")}}
	m := New(db, ff, scraper.NewRegistry(), &spyNotifier{}, time.Hour, PolicyAlways)
	m.delay = 0

	p := newProduct(t, db, url)

	updated, err := m.CheckProduct(p.ID)
	assert.False(t, updated)
	assert.Error(t, err)
}

// Página sem preço extraível: título entra, nenhuma observação é criada e a
// checagem reporta que não houve preço novo.
func TestCheckProductWithoutPrice(t *testing.T) {
	db := newTestDB(t)

	url := "https://shop.example.com/p/3"
	ff := &fakeFetcher{pages: map[string]string{
		url: `<html><head><meta property="og:title" content="Sem Preço" /></head><body>nada aqui</body></html>`,
	}}
	spy := &spyNotifier{}
	m := New(db, ff, scraper.NewRegistry(), spy, time.Hour, PolicyAlways)
	m.delay = 0

	p := newProduct(t, db, url)
	target := 10.0
	_, err := db.CreateWatch(models.Watch{ProductID: p.ID, Channel: "email", TargetPrice: &target, Endpoint: "a@b.com"})
	require.NoError(t, err)

	updated, err := m.CheckProduct(p.ID)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Empty(t, spy.all())

	got, err := db.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sem Preço", got.Title)
	assert.Nil(t, got.CurrentPrice)
}

// Política "once" de ponta a ponta: mesmo preço em dois ciclos notifica só
// uma vez; o preço subir acima do alvo rearma o watch.
func TestOncePolicyEndToEnd(t *testing.T) {
	db := newTestDB(t)

	url := "https://shop.example.com/p/4"
	ff := &fakeFetcher{pages: map[string]string{
		url: productPage("Produto", "40.00"),
	}}
	spy := &spyNotifier{}
	m := New(db, ff, scraper.NewRegistry(), spy, time.Hour, PolicyOnce)
	m.delay = 0

	p := newProduct(t, db, url)
	target := 50.0
	_, err := db.CreateWatch(models.Watch{ProductID: p.ID, Channel: "email", TargetPrice: &target, Endpoint: "a@b.com"})
	require.NoError(t, err)

	_, err = m.CheckProduct(p.ID)
	require.NoError(t, err)
	_, err = m.CheckProduct(p.ID)
	require.NoError(t, err)
	assert.Len(t, spy.all(), 1, "segunda checagem com a mesma condição não re-notifica")

	ff.pages[url] = productPage("Produto", "60.00")
	_, err = m.CheckProduct(p.ID)
	require.NoError(t, err)
	assert.Len(t, spy.all(), 1)

	ff.pages[url] = productPage("Produto", "45.00")
	_, err = m.CheckProduct(p.ID)
	require.NoError(t, err)
	assert.Len(t, spy.all(), 2, "condição voltou a valer depois de rearmada")
}
