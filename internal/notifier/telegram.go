package notifier

import (
	"fmt"
	"strconv"

	"vigia-precos/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram entrega alertas em um chat do Telegram. O endpoint do watch é o
// chat ID em texto.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram cria o canal de Telegram sobre um bot já autenticado.
func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{bot: bot}
}

func (t *Telegram) Send(watch models.Watch, product models.Product, newPrice float64, reason string) error {
	chatID, err := strconv.ParseInt(watch.Endpoint, 10, 64)
	if err != nil {
		return fmt.Errorf("endpoint não é um chat ID válido: %q", watch.Endpoint)
	}

	title, body := formatAlert(product, newPrice, reason)
	msg := tgbotapi.NewMessage(chatID, title+"\n\n"+body)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("erro ao enviar mensagem: %w", err)
	}
	return nil
}
