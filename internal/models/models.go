package models

import "time"

// Product representa um produto rastreado. A URL identifica o produto de
// forma única; re-rastrear a mesma URL nunca cria duplicata.
type Product struct {
	ID            int64
	URL           string
	Domain        string
	Title         string
	Currency      string
	CurrentPrice  *float64
	InStock       *bool
	LastCheckedAt time.Time
	CreatedAt     time.Time
}

// PriceObservation é um registro imutável de preço capturado em um scrape.
// Uma linha por scrape bem-sucedido, ordenada por captura.
type PriceObservation struct {
	ID         int64
	ProductID  int64
	Price      float64
	CapturedAt time.Time
}

// Watch é uma condição de alerta sobre um produto. Pelo menos um entre
// TargetPrice e DropPercent deve estar definido na criação (validado na
// camada de entrada, nunca pelo avaliador).
type Watch struct {
	ID          int64
	ProductID   int64
	Channel     string // email | webpush | telegram
	TargetPrice *float64
	DropPercent *float64
	Endpoint    string
	Active      bool
	CreatedAt   time.Time
}
