package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vigia-precos/config"
	"vigia-precos/internal/api"
	"vigia-precos/internal/bot"
	"vigia-precos/internal/database"
	"vigia-precos/internal/fetcher"
	"vigia-precos/internal/monitor"
	"vigia-precos/internal/notifier"
	"vigia-precos/internal/scraper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Erro ao carregar configurações")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("Erro ao inicializar banco de dados")
	}
	defer db.Close()

	// Canais de notificação: cada um entra só se estiver configurado.
	dispatcher := notifier.NewDispatcher()
	if cfg.SMTPHost != "" {
		dispatcher.Register("email", notifier.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom))
	}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		dispatcher.Register("webpush", notifier.NewWebPush(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber))
	}

	var telegramBot *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		telegramBot, err = bot.Init(cfg.TelegramBotToken)
		if err != nil {
			log.WithError(err).Fatal("Erro ao inicializar bot do Telegram")
		}
		dispatcher.Register("telegram", notifier.NewTelegram(telegramBot))
	}

	registry := scraper.NewRegistry()
	fetchClient := fetcher.New(cfg.FetchTimeout)
	mon := monitor.New(db, fetchClient, registry, dispatcher, cfg.CheckInterval, cfg.NotifyPolicy)

	go mon.Start()

	if telegramBot != nil {
		go bot.SetupCommands(telegramBot, db, mon, cfg.TelegramChatID)
	}

	if cfg.HTTPAddr != "" {
		server := api.New(db, mon)
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("API HTTP ouvindo")
			if err := http.ListenAndServe(cfg.HTTPAddr, server.Handler()); err != nil {
				log.WithError(err).Fatal("Erro no servidor HTTP")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Encerrando...")
	mon.Stop()
}
