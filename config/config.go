package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config contém as configurações da aplicação.
type Config struct {
	DatabasePath  string
	CheckInterval time.Duration
	FetchTimeout  time.Duration
	HTTPAddr      string
	NotifyPolicy  string // always | once

	TelegramBotToken string
	TelegramChatID   int64

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string
}

// Load carrega as configurações das variáveis de ambiente.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", "./vigia.db"),
		CheckInterval:   3 * time.Hour,
		FetchTimeout:    15 * time.Second,
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		NotifyPolicy:    getEnv("NOTIFY_POLICY", "always"),
		SMTPPort:        587,
		VAPIDSubscriber: getEnv("VAPID_SUBSCRIBER", "mailto:alerts@example.com"),
	}

	if cfg.NotifyPolicy != "always" && cfg.NotifyPolicy != "once" {
		return nil, fmt.Errorf("NOTIFY_POLICY inválido: %q (use always ou once)", cfg.NotifyPolicy)
	}

	if v := os.Getenv("CHECK_INTERVAL_HOURS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.CheckInterval = time.Duration(parsed) * time.Hour
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.FetchTimeout = time.Duration(parsed) * time.Second
		}
	}

	// Canais de notificação são todos opcionais; cada um só é habilitado
	// quando suas credenciais estão presentes.
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if chatID, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = chatID
		}
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.SMTPPort = parsed
		}
	}
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.SMTPFrom = getEnv("SMTP_FROM", "Vigia de Preços <alerts@example.com>")

	cfg.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
