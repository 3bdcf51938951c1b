package notifier

import (
	"fmt"

	"vigia-precos/internal/models"

	log "github.com/sirupsen/logrus"
)

// Channel entrega um alerta por um meio específico (telegram, email, webpush).
type Channel interface {
	Send(watch models.Watch, product models.Product, newPrice float64, reason string) error
}

// Dispatcher roteia alertas para o canal configurado no watch. Canal
// desconhecido ou não configurado é registrado e descartado; falha de
// entrega não volta para o monitor.
type Dispatcher struct {
	channels map[string]Channel
}

// NewDispatcher cria um dispatcher sem canais registrados.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: make(map[string]Channel)}
}

// Register habilita um canal de entrega sob a tag informada.
func (d *Dispatcher) Register(tag string, ch Channel) {
	d.channels[tag] = ch
}

// Notify implementa monitor.Notifier.
func (d *Dispatcher) Notify(watch models.Watch, product models.Product, newPrice float64, reason string) {
	fields := log.Fields{
		"watch_id":   watch.ID,
		"product_id": product.ID,
		"channel":    watch.Channel,
	}

	ch, ok := d.channels[watch.Channel]
	if !ok {
		log.WithFields(fields).Warn("Canal de notificação não configurado, alerta descartado")
		return
	}
	if err := ch.Send(watch, product, newPrice, reason); err != nil {
		log.WithFields(fields).WithError(err).Error("Erro ao enviar notificação")
		return
	}
	log.WithFields(fields).Info("Notificação enviada")
}

// formatAlert monta o texto do alerta em pt-BR, comum a todos os canais.
func formatAlert(product models.Product, newPrice float64, reason string) (title, body string) {
	name := product.Title
	if name == "" {
		name = product.URL
	}
	title = "🎉 Promoção detectada!"
	body = fmt.Sprintf(
		"Produto: %s\nPreço atual: R$ %.2f\nMotivo: %s\n\nLink: %s",
		name, newPrice, reason, product.URL,
	)
	return title, body
}
