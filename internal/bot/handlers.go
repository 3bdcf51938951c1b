package bot

import (
	"fmt"
	"strconv"
	"strings"

	"vigia-precos/internal/database"
	"vigia-precos/internal/models"
	"vigia-precos/internal/monitor"
	"vigia-precos/internal/scraper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// escapeHTML escapa caracteres especiais do HTML do Telegram.
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

// SetupCommands consome as atualizações do bot e atende os comandos.
// Bloqueia; rodar em goroutine.
func SetupCommands(b *tgbotapi.BotAPI, db *database.DB, mon *monitor.Monitor, authorizedChatID int64) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			continue
		}

		parts := strings.Fields(update.Message.Text)
		command := strings.ToLower(parts[0])
		if idx := strings.Index(command, "@"); idx > 0 {
			command = command[:idx]
		}

		isPublic := command == "/start" || command == "/help"
		if !isPublic && authorizedChatID != 0 && update.Message.Chat.ID != authorizedChatID {
			reply(b, update.Message.Chat.ID, "Você não está autorizado a usar este bot.")
			continue
		}

		switch command {
		case "/start", "/help":
			handleHelp(b, update.Message.Chat.ID)
		case "/track":
			handleTrack(b, update.Message, db, mon)
		case "/list":
			handleList(b, update.Message.Chat.ID, db)
		case "/watches":
			handleWatches(b, update.Message, db)
		case "/check":
			handleCheck(b, update.Message, db, mon)
		case "/remove":
			handleRemove(b, update.Message, db)
		default:
			reply(b, update.Message.Chat.ID, "Comando não reconhecido. Use /help para ver os comandos disponíveis.")
		}
	}
}

func reply(b *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.Send(msg); err != nil {
		log.WithError(err).Error("Erro ao enviar mensagem")
	}
}

func replyHTML(b *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	if _, err := b.Send(msg); err != nil {
		log.WithError(err).Error("Erro ao enviar mensagem com HTML, tentando sem formatação")
		msg.ParseMode = ""
		if _, err := b.Send(msg); err != nil {
			log.WithError(err).Error("Erro ao enviar mensagem")
		}
	}
}

func handleHelp(b *tgbotapi.BotAPI, chatID int64) {
	helpText := `🤖 <b>Vigia de Preços</b>

<b>Comandos disponíveis:</b>

<b>/track</b> &lt;URL&gt; &lt;preço_alvo&gt; OU /track &lt;URL&gt; &lt;queda%&gt;
Cria um alerta para o produto. Exemplo:
/track https://www.magazineluiza.com.br/produto 1999.90
/track https://www.magazineluiza.com.br/produto 15%

<b>/list</b> - Listar produtos rastreados

<b>/watches</b> &lt;id_produto&gt; - Listar alertas de um produto

<b>/check</b> &lt;id_produto&gt; - Verificar o preço agora

<b>/remove</b> &lt;id_watch&gt; - Desativar um alerta

<b>/help</b> - Mostrar esta mensagem
`
	replyHTML(b, chatID, helpText)
}

func handleTrack(b *tgbotapi.BotAPI, message *tgbotapi.Message, db *database.DB, mon *monitor.Monitor) {
	parts := strings.Fields(message.Text)
	if len(parts) < 3 {
		reply(b, message.Chat.ID, "❌ Formato incorreto.\n\nUso: /track <URL> <preço_alvo> OU /track <URL> <queda%>")
		return
	}

	url := parts[1]
	condition := parts[2]

	domain, err := scraper.DomainForURL(url)
	if err != nil {
		reply(b, message.Chat.ID, "❌ URL inválida.")
		return
	}

	watch := models.Watch{
		Channel:  "telegram",
		Endpoint: strconv.FormatInt(message.Chat.ID, 10),
	}
	if strings.HasSuffix(condition, "%") {
		drop, err := strconv.ParseFloat(strings.TrimSuffix(condition, "%"), 64)
		if err != nil || drop < 0 || drop > 100 {
			reply(b, message.Chat.ID, "❌ Queda inválida. Use um valor entre 0 e 100.")
			return
		}
		watch.DropPercent = &drop
	} else {
		price, err := strconv.ParseFloat(condition, 64)
		if err != nil || price < 0 {
			reply(b, message.Chat.ID, "❌ Preço inválido. Use um valor numérico positivo.")
			return
		}
		watch.TargetPrice = &price
	}

	product, err := db.FindProductByURL(url)
	if err != nil {
		reply(b, message.Chat.ID, fmt.Sprintf("❌ Erro ao consultar produto: %v", err))
		return
	}
	if product == nil {
		product, err = db.CreateProduct(url, domain)
		if err != nil {
			reply(b, message.Chat.ID, fmt.Sprintf("❌ Erro ao criar produto: %v", err))
			return
		}
	}
	watch.ProductID = product.ID

	watchID, err := db.CreateWatch(watch)
	if err != nil {
		reply(b, message.Chat.ID, fmt.Sprintf("❌ Erro ao criar alerta: %v", err))
		return
	}

	// Primeira checagem imediata para preencher título e preço.
	priceInfo := ""
	if _, err := mon.CheckProduct(product.ID); err != nil {
		log.WithField("product_id", product.ID).WithError(err).Warn("Falha na primeira checagem")
	} else if updated, err := db.GetProduct(product.ID); err == nil && updated.CurrentPrice != nil {
		priceInfo = fmt.Sprintf("\nPreço atual: R$ %.2f", *updated.CurrentPrice)
		product = updated
	}

	name := product.Title
	if name == "" {
		name = url
	}
	response := fmt.Sprintf("✅ Alerta criado (watch %d)!\n\nProduto: %s%s", watchID, name, priceInfo)
	if watch.TargetPrice != nil {
		response += fmt.Sprintf("\nPreço alvo: R$ %.2f", *watch.TargetPrice)
	}
	if watch.DropPercent != nil {
		response += fmt.Sprintf("\nQueda alvo: %.1f%%", *watch.DropPercent)
	}
	reply(b, message.Chat.ID, response)
}

func handleList(b *tgbotapi.BotAPI, chatID int64, db *database.DB) {
	products, err := db.ListProducts()
	if err != nil {
		reply(b, chatID, fmt.Sprintf("❌ Erro ao listar produtos: %v", err))
		return
	}
	if len(products) == 0 {
		reply(b, chatID, "📋 Nenhum produto sendo rastreado no momento.")
		return
	}

	var response strings.Builder
	response.WriteString("📋 <b>Produtos rastreados:</b>\n\n")
	for _, p := range products {
		name := p.Title
		if name == "" {
			name = p.URL
		}
		response.WriteString(fmt.Sprintf("🆔 <b>ID: %d</b>\n📦 %s\n", p.ID, escapeHTML(name)))
		if p.CurrentPrice != nil {
			response.WriteString(fmt.Sprintf("💰 Preço atual: R$ %.2f\n", *p.CurrentPrice))
		} else {
			response.WriteString("💰 Preço atual: ainda não verificado\n")
		}
		if p.InStock != nil && !*p.InStock {
			response.WriteString("🚫 Indisponível na loja\n")
		}
		if !p.LastCheckedAt.IsZero() {
			response.WriteString(fmt.Sprintf("🕐 Última verificação: %s\n", p.LastCheckedAt.Format("02/01/2006 15:04")))
		}
		response.WriteString(fmt.Sprintf("🔗 %s\n\n", p.URL))
	}
	replyHTML(b, chatID, response.String())
}

func handleWatches(b *tgbotapi.BotAPI, message *tgbotapi.Message, db *database.DB) {
	parts := strings.Fields(message.Text)
	if len(parts) < 2 {
		reply(b, message.Chat.ID, "❌ Uso: /watches <id_produto>")
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		reply(b, message.Chat.ID, "❌ ID inválido.")
		return
	}

	watches, err := db.ListWatches(id)
	if err != nil {
		reply(b, message.Chat.ID, fmt.Sprintf("❌ Erro ao listar alertas: %v", err))
		return
	}
	if len(watches) == 0 {
		reply(b, message.Chat.ID, "📋 Nenhum alerta para este produto.")
		return
	}

	var response strings.Builder
	response.WriteString("🔔 <b>Alertas:</b>\n\n")
	for _, w := range watches {
		status := "ativo"
		if !w.Active {
			status = "desativado"
		}
		response.WriteString(fmt.Sprintf("🆔 <b>Watch %d</b> (%s, canal %s)\n", w.ID, status, w.Channel))
		if w.TargetPrice != nil {
			response.WriteString(fmt.Sprintf("🎯 Preço alvo: R$ %.2f\n", *w.TargetPrice))
		}
		if w.DropPercent != nil {
			response.WriteString(fmt.Sprintf("📉 Queda alvo: %.1f%%\n", *w.DropPercent))
		}
		response.WriteString("\n")
	}
	replyHTML(b, message.Chat.ID, response.String())
}

func handleCheck(b *tgbotapi.BotAPI, message *tgbotapi.Message, db *database.DB, mon *monitor.Monitor) {
	parts := strings.Fields(message.Text)
	if len(parts) < 2 {
		reply(b, message.Chat.ID, "❌ Uso: /check <id_produto>")
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		reply(b, message.Chat.ID, "❌ ID inválido.")
		return
	}
	if _, err := db.GetProduct(id); err != nil {
		reply(b, message.Chat.ID, "❌ Produto não encontrado.")
		return
	}

	updated, err := mon.CheckProduct(id)
	if err != nil {
		reply(b, message.Chat.ID, fmt.Sprintf("❌ Erro ao verificar preço: %v", err))
		return
	}

	product, err := db.GetProduct(id)
	if err != nil {
		reply(b, message.Chat.ID, "❌ Erro ao buscar produto atualizado.")
		return
	}

	name := product.Title
	if name == "" {
		name = product.URL
	}
	response := fmt.Sprintf("📊 <b>%s</b>\n\n", escapeHTML(name))
	if updated {
		response += fmt.Sprintf("Novo preço registrado: R$ %.2f\n", *product.CurrentPrice)
	} else {
		response += "Nenhum preço novo registrado nesta verificação.\n"
	}
	if product.InStock != nil && !*product.InStock {
		response += "🚫 Produto indisponível na loja\n"
	}
	response += fmt.Sprintf("\nLink: %s", product.URL)
	replyHTML(b, message.Chat.ID, response)
}

func handleRemove(b *tgbotapi.BotAPI, message *tgbotapi.Message, db *database.DB) {
	parts := strings.Fields(message.Text)
	if len(parts) < 2 {
		reply(b, message.Chat.ID, "❌ Uso: /remove <id_watch>")
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		reply(b, message.Chat.ID, "❌ ID inválido.")
		return
	}
	if _, err := db.GetWatch(id); err != nil {
		reply(b, message.Chat.ID, "❌ Alerta não encontrado.")
		return
	}
	if err := db.DeactivateWatch(id); err != nil {
		reply(b, message.Chat.ID, fmt.Sprintf("❌ Erro ao desativar alerta: %v", err))
		return
	}
	reply(b, message.Chat.ID, fmt.Sprintf("✅ Alerta %d desativado.", id))
}
