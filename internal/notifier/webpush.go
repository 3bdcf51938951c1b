package notifier

import (
	"encoding/json"
	"fmt"

	"vigia-precos/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPush entrega alertas por push de navegador. O endpoint do watch carrega
// a subscription serializada em JSON (endpoint + chaves).
type WebPush struct {
	publicKey  string
	privateKey string
	subscriber string
}

// NewWebPush cria o canal de web push com as chaves VAPID.
func NewWebPush(publicKey, privateKey, subscriber string) *WebPush {
	return &WebPush{publicKey: publicKey, privateKey: privateKey, subscriber: subscriber}
}

func (w *WebPush) Send(watch models.Watch, product models.Product, newPrice float64, reason string) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(watch.Endpoint), &sub); err != nil {
		return fmt.Errorf("endpoint não é uma subscription válida: %w", err)
	}

	title, body := formatAlert(product, newPrice, reason)
	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
		"url":   product.URL,
	})
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotification(payload, &sub, &webpush.Options{
		TTL:             3600,
		Subscriber:      w.subscriber,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
	})
	if err != nil {
		return fmt.Errorf("erro ao enviar push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push rejeitado: status %d", resp.StatusCode)
	}
	return nil
}
