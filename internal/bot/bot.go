package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Init inicializa o bot do Telegram.
func Init(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN não configurado")
	}

	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, fmt.Errorf("token do Telegram inválido ou expirado; fale com @BotFather para obter um novo")
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %w", err)
	}

	b.Debug = false
	log.WithField("username", b.Self.UserName).Info("Bot do Telegram autorizado")
	return b, nil
}
