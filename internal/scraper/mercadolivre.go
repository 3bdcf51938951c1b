package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MercadoLivreParser extrai dados de páginas do Mercado Livre.
type MercadoLivreParser struct{}

// NewMercadoLivreParser cria uma nova instância do parser do Mercado Livre.
func NewMercadoLivreParser() *MercadoLivreParser {
	return &MercadoLivreParser{}
}

func (m *MercadoLivreParser) Parse(html string) Result {
	var res Result
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res
	}

	titleSelectors := []string{
		"h1.ui-pdp-title",
		"h1[data-testid='title']",
		".ui-pdp-title",
		"h1",
	}
	for _, sel := range titleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			res.Title = t
			break
		}
	}

	// O preço promocional fica na segunda linha quando há desconto; os
	// seletores mais amplos vêm depois.
	priceSelectors := []string{
		".ui-pdp-price__second-line .andes-money-amount__fraction",
		"[data-testid='price'] .andes-money-amount__fraction",
		".andes-money-amount__fraction",
		".price-tag-fraction",
	}
	// A fração vem com ponto de milhar ("1.899") e os centavos em um
	// elemento separado; montar o valor completo antes de normalizar.
	cents := strings.TrimSpace(doc.Find(".andes-money-amount__cents").First().Text())
	for _, sel := range priceSelectors {
		frac := strings.TrimSpace(doc.Find(sel).First().Text())
		if frac == "" {
			continue
		}
		text := strings.ReplaceAll(frac, ".", "")
		if cents != "" {
			text += "," + cents
		}
		if p := pricePtr(text); p != nil {
			res.Price = p
			break
		}
	}
	if res.Price == nil {
		if content, ok := doc.Find("meta[property='product:price:amount']").Attr("content"); ok {
			res.Price = pricePtr(content)
		}
	}

	doc.Find("script, style, noscript").Remove()
	res.InStock = detectStock(doc.Text())
	return res
}
