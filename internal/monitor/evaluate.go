package monitor

import (
	"fmt"

	"vigia-precos/internal/models"
	"vigia-precos/internal/scraper"
)

// Regras de disparo de um watch.
const (
	RuleTarget = "target"
	RuleDrop   = "drop"
)

// Trigger é o evento de um watch com condição satisfeita durante a avaliação
// de uma nova observação.
type Trigger struct {
	Watch  models.Watch
	Rule   string
	Reason string
}

// RecordAndEvaluate persiste o resultado de um scrape e, se um novo preço
// foi registrado, avalia os watches ativos do produto.
//
// Preço presente gera uma observação nova (sem deduplicação) e atualiza o
// preço corrente. Título só é gravado se o produto ainda não tem um.
// Disponibilidade presente sobrescreve a anterior. O produto recebido é
// atualizado em memória junto com o banco.
func (m *Monitor) RecordAndEvaluate(product *models.Product, result scraper.Result) (bool, []Trigger, error) {
	updated := false
	if result.Price != nil {
		if err := m.db.AppendObservation(product.ID, *result.Price); err != nil {
			return false, nil, fmt.Errorf("erro ao registrar observação: %w", err)
		}
		updated = true
	}

	var title *string
	if result.Title != "" && product.Title == "" {
		title = &result.Title
	}
	if err := m.db.UpdateProductObserved(product.ID, result.Price, title, result.InStock); err != nil {
		return updated, nil, fmt.Errorf("erro ao atualizar produto: %w", err)
	}

	if result.Price != nil {
		product.CurrentPrice = result.Price
	}
	if title != nil {
		product.Title = *title
	}
	if result.InStock != nil {
		product.InStock = result.InStock
	}

	if !updated {
		return false, nil, nil
	}

	fired, err := m.evaluateWatches(product.ID, *result.Price)
	return updated, fired, err
}

// evaluateWatches aplica as duas regras, independentes entre si, a cada
// watch ativo. Um watch pode disparar pelas duas no mesmo ciclo.
func (m *Monitor) evaluateWatches(productID int64, newPrice float64) ([]Trigger, error) {
	previous, err := m.db.PreviousObservation(productID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar observação anterior: %w", err)
	}

	watches, err := m.db.ListActiveWatches(productID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar watches: %w", err)
	}

	var fired []Trigger
	for _, w := range watches {
		if w.TargetPrice != nil && newPrice <= *w.TargetPrice {
			fired = append(fired, Trigger{
				Watch:  w,
				Rule:   RuleTarget,
				Reason: fmt.Sprintf("preço R$ %.2f <= alvo R$ %.2f", newPrice, *w.TargetPrice),
			})
		}
		// Queda percentual exige observação anterior; preço anterior zero
		// nunca dispara (nem divide).
		if w.DropPercent != nil && previous != nil && previous.Price > 0 {
			delta := (previous.Price - newPrice) / previous.Price * 100.0
			if delta >= *w.DropPercent {
				fired = append(fired, Trigger{
					Watch:  w,
					Rule:   RuleDrop,
					Reason: fmt.Sprintf("queda de %.1f%% >= %.1f%% (de R$ %.2f)", delta, *w.DropPercent, previous.Price),
				})
			}
		}
	}
	return fired, nil
}
