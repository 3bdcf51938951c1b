package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vigia-precos/internal/database"
	"vigia-precos/internal/fetcher"
	"vigia-precos/internal/models"
	"vigia-precos/internal/monitor"
	"vigia-precos/internal/scraper"

	log "github.com/sirupsen/logrus"
)

var validChannels = map[string]bool{
	"email":    true,
	"webpush":  true,
	"telegram": true,
}

// Server expõe a API HTTP de entrada: criação de watches e consultas de
// produto/histórico. Toda validação de watch acontece aqui, antes do core.
type Server struct {
	db      *database.DB
	monitor *monitor.Monitor
}

// New cria o servidor da API.
func New(db *database.DB, m *monitor.Monitor) *Server {
	return &Server{db: db, monitor: m}
}

// Handler monta as rotas da API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/track", s.handleTrack)
	mux.HandleFunc("/products", s.handleListProducts)
	mux.HandleFunc("/products/", s.handleProduct)
	mux.HandleFunc("/scrape-now", s.handleScrapeNow)
	return mux
}

type trackRequest struct {
	URL         string   `json:"url"`
	Channel     string   `json:"channel"`
	Endpoint    string   `json:"endpoint"`
	TargetPrice *float64 `json:"target_price"`
	DropPercent *float64 `json:"drop_percent"`
}

type trackResponse struct {
	ProductID int64 `json:"product_id"`
	WatchID   int64 `json:"watch_id"`
}

type productOut struct {
	ID            int64    `json:"id"`
	URL           string   `json:"url"`
	Domain        string   `json:"domain"`
	Title         string   `json:"title,omitempty"`
	Currency      string   `json:"currency"`
	CurrentPrice  *float64 `json:"current_price"`
	InStock       *bool    `json:"in_stock"`
	LastCheckedAt string   `json:"last_checked_at,omitempty"`
}

type pricePoint struct {
	Price      float64 `json:"price"`
	CapturedAt string  `json:"captured_at"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	domain, err := scraper.DomainForURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "URL inválida")
		return
	}
	if !validChannels[req.Channel] {
		writeError(w, http.StatusBadRequest, "canal inválido: use email, webpush ou telegram")
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		writeError(w, http.StatusBadRequest, "endpoint é obrigatório")
		return
	}
	// Watch sem condição nenhuma nunca chega ao avaliador.
	if req.TargetPrice == nil && req.DropPercent == nil {
		writeError(w, http.StatusBadRequest, "defina target_price ou drop_percent")
		return
	}
	if (req.TargetPrice != nil && *req.TargetPrice < 0) || (req.DropPercent != nil && *req.DropPercent < 0) {
		writeError(w, http.StatusBadRequest, "valores devem ser >= 0")
		return
	}

	product, err := s.db.FindProductByURL(req.URL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "erro ao consultar produto")
		return
	}
	if product == nil {
		product, err = s.db.CreateProduct(req.URL, domain)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "erro ao criar produto")
			return
		}
	}

	watchID, err := s.db.CreateWatch(models.Watch{
		ProductID:   product.ID,
		Channel:     req.Channel,
		TargetPrice: req.TargetPrice,
		DropPercent: req.DropPercent,
		Endpoint:    req.Endpoint,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "erro ao criar watch")
		return
	}

	// Primeira checagem imediata, melhor esforço.
	if _, err := s.monitor.CheckProduct(product.ID); err != nil {
		log.WithField("product_id", product.ID).WithError(err).Warn("Falha na primeira checagem")
	}

	writeJSON(w, http.StatusCreated, trackResponse{ProductID: product.ID, WatchID: watchID})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 100 {
			limit = n
		}
	}

	products, err := s.db.ListProducts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "erro ao listar produtos")
		return
	}
	if len(products) > limit {
		products = products[:limit]
	}

	out := make([]productOut, 0, len(products))
	for _, p := range products {
		out = append(out, toProductOut(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProduct atende /products/{id} e /products/{id}/history.
func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	idStr, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}

	product, err := s.db.GetProduct(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "produto não encontrado")
		return
	}

	switch tail {
	case "":
		writeJSON(w, http.StatusOK, toProductOut(*product))
	case "history":
		days := 30
		if v := r.URL.Query().Get("days"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 365 {
				days = n
			}
		}
		since := time.Now().UTC().AddDate(0, 0, -days)
		observations, err := s.db.ListObservationsSince(id, since)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "erro ao consultar histórico")
			return
		}
		points := make([]pricePoint, 0, len(observations))
		for _, o := range observations {
			points = append(points, pricePoint{Price: o.Price, CapturedAt: o.CapturedAt.Format(time.RFC3339)})
		}
		writeJSON(w, http.StatusOK, points)
	default:
		writeError(w, http.StatusNotFound, "rota não encontrada")
	}
}

func (s *Server) handleScrapeNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "product_id inválido")
		return
	}
	if _, err := s.db.GetProduct(id); err != nil {
		writeError(w, http.StatusNotFound, "produto não encontrado")
		return
	}

	updated, err := s.monitor.CheckProduct(id)
	if err != nil {
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			writeError(w, http.StatusBadGateway, "falha ao buscar a página do produto")
			return
		}
		writeError(w, http.StatusInternalServerError, "falha ao verificar o produto")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "updated": updated})
}

func toProductOut(p models.Product) productOut {
	out := productOut{
		ID:           p.ID,
		URL:          p.URL,
		Domain:       p.Domain,
		Title:        p.Title,
		Currency:     p.Currency,
		CurrentPrice: p.CurrentPrice,
		InStock:      p.InStock,
	}
	if !p.LastCheckedAt.IsZero() {
		out.LastCheckedAt = p.LastCheckedAt.Format(time.RFC3339)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Erro ao serializar resposta")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
