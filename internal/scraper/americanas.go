package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AmericanasParser extrai dados de páginas da Americanas.
type AmericanasParser struct{}

// NewAmericanasParser cria uma nova instância do parser da Americanas.
func NewAmericanasParser() *AmericanasParser {
	return &AmericanasParser{}
}

func (a *AmericanasParser) Parse(html string) Result {
	var res Result
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res
	}

	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		res.Title = t
	} else if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		res.Title = strings.TrimSpace(og)
	}

	if p := pricePtr(strings.TrimSpace(doc.Find("[data-testid='price-value']").First().Text())); p != nil {
		res.Price = p
	} else if content, ok := doc.Find("meta[itemprop='price']").Attr("content"); ok {
		res.Price = pricePtr(content)
	}

	doc.Find("script, style, noscript").Remove()
	res.InStock = detectStock(doc.Text())
	return res
}
