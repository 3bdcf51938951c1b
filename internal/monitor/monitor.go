package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vigia-precos/internal/database"
	"vigia-precos/internal/models"
	"vigia-precos/internal/scraper"

	log "github.com/sirupsen/logrus"
)

// Políticas de notificação para condições que continuam satisfeitas em
// ciclos seguintes.
const (
	PolicyAlways = "always" // re-notifica a cada ciclo (comportamento padrão)
	PolicyOnce   = "once"   // notifica uma vez até a condição deixar de valer
)

// Fetcher busca o HTML de uma URL de produto.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Notifier recebe os eventos de watch disparado. Sucesso ou falha de entrega
// é responsabilidade do notificador, não do monitor.
type Notifier interface {
	Notify(watch models.Watch, product models.Product, newPrice float64, reason string)
}

// Monitor roda o ciclo buscar→extrair→persistir→avaliar para cada produto
// rastreado em intervalo fixo, além de checagens sob demanda.
type Monitor struct {
	db       *database.DB
	fetcher  Fetcher
	registry *scraper.Registry
	notifier Notifier
	interval time.Duration
	policy   string
	delay    time.Duration // pausa entre produtos dentro de um ciclo

	mu        sync.Mutex
	locks     map[int64]*sync.Mutex
	lastFired map[int64]map[string]struct{} // política "once": disparos ainda valendo, por produto

	stop     chan struct{}
	stopOnce sync.Once
}

// New cria uma nova instância do monitor.
func New(db *database.DB, fetcher Fetcher, registry *scraper.Registry, notifier Notifier, interval time.Duration, policy string) *Monitor {
	if policy != PolicyOnce {
		policy = PolicyAlways
	}
	return &Monitor{
		db:        db,
		fetcher:   fetcher,
		registry:  registry,
		notifier:  notifier,
		interval:  interval,
		policy:    policy,
		delay:     2 * time.Second,
		locks:     make(map[int64]*sync.Mutex),
		lastFired: make(map[int64]map[string]struct{}),
		stop:      make(chan struct{}),
	}
}

// Start roda ciclos até Stop ser chamado. Bloqueia; rodar em goroutine.
func (m *Monitor) Start() {
	log.WithField("interval", m.interval).Info("Monitor iniciado")

	// Primeira verificação imediata.
	m.CheckAll()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckAll()
		case <-m.stop:
			log.Info("Monitor encerrado")
			return
		}
	}
}

// Stop impede o agendamento de novos ciclos. O ciclo em andamento termina
// por conta própria.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// CheckAll roda o ciclo completo para todos os produtos rastreados. A lista
// é lida do banco a cada ciclo; falha em um produto não interrompe os demais.
func (m *Monitor) CheckAll() {
	products, err := m.db.ListProducts()
	if err != nil {
		log.WithError(err).Error("Erro ao listar produtos")
		return
	}

	for i, product := range products {
		if _, err := m.checkOne(product); err != nil {
			log.WithFields(log.Fields{
				"product_id": product.ID,
				"url":        product.URL,
			}).WithError(err).Warn("Falha ao verificar produto")
		}
		// Pausa entre requisições para não sobrecarregar as lojas.
		if i < len(products)-1 {
			time.Sleep(m.delay)
		}
	}
}

// CheckProduct roda o ciclo para um único produto, sob demanda. Retorna se
// um novo preço foi registrado; erro de busca/persistência nunca vira
// sucesso silencioso.
func (m *Monitor) CheckProduct(productID int64) (bool, error) {
	product, err := m.db.GetProduct(productID)
	if err != nil {
		return false, fmt.Errorf("produto %d não encontrado: %w", productID, err)
	}
	return m.checkOne(*product)
}

func (m *Monitor) checkOne(product models.Product) (updated bool, err error) {
	// Escritas no histórico de um mesmo produto são serializadas para manter
	// a ordem das observações entre ciclo agendado e checagem sob demanda.
	lock := m.productLock(product.ID)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			updated = false
			err = fmt.Errorf("pânico ao processar produto %d: %v", product.ID, r)
		}
	}()

	html, err := m.fetcher.Fetch(context.Background(), product.URL)
	if err != nil {
		return false, err
	}

	parser := m.registry.Select(product.Domain)
	result := parser.Parse(html)

	updated, fired, err := m.RecordAndEvaluate(&product, result)
	if err != nil {
		return updated, err
	}

	for _, t := range m.applyPolicy(product.ID, fired) {
		log.WithFields(log.Fields{
			"product_id": product.ID,
			"watch_id":   t.Watch.ID,
			"reason":     t.Reason,
		}).Info("Watch disparado")
		if m.notifier != nil {
			m.notifier.Notify(t.Watch, product, *result.Price, t.Reason)
		}
	}
	return updated, nil
}

// applyPolicy filtra os disparos conforme a política de notificação. Na
// política "once", um par watch+regra só notifica de novo depois de um ciclo
// em que a condição não valeu.
func (m *Monitor) applyPolicy(productID int64, fired []Trigger) []Trigger {
	if m.policy == PolicyAlways {
		return fired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.lastFired[productID]
	current := make(map[string]struct{}, len(fired))
	var out []Trigger
	for _, t := range fired {
		key := fmt.Sprintf("%d:%s", t.Watch.ID, t.Rule)
		current[key] = struct{}{}
		if _, seen := previous[key]; !seen {
			out = append(out, t)
		}
	}
	m.lastFired[productID] = current
	return out
}

func (m *Monitor) productLock(id int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}
