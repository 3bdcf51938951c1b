package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MagaluParser extrai dados de páginas do Magazine Luiza.
type MagaluParser struct{}

// NewMagaluParser cria uma nova instância do parser do Magalu.
func NewMagaluParser() *MagaluParser {
	return &MagaluParser{}
}

func (m *MagaluParser) Parse(html string) Result {
	var res Result
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res
	}

	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		res.Title = t
	} else {
		res.Title = strings.TrimSpace(doc.Find("[itemprop='name']").First().Text())
	}

	priceSelectors := []string{
		"[data-testid='price-value']",
		".price-template__text",
		".price__buy-box .price-template__text",
	}
	for _, sel := range priceSelectors {
		if p := pricePtr(strings.TrimSpace(doc.Find(sel).First().Text())); p != nil {
			res.Price = p
			break
		}
	}

	doc.Find("script, style, noscript").Remove()
	res.InStock = detectStock(doc.Text())
	return res
}
