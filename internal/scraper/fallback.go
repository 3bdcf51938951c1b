package scraper

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FallbackParser é o extrator genérico usado quando nenhum adapter específico
// cobre o domínio. Cada campo é resolvido de forma independente: falha em um
// não impede os demais.
type FallbackParser struct{}

// NewFallbackParser cria uma nova instância do extrator genérico.
func NewFallbackParser() *FallbackParser {
	return &FallbackParser{}
}

// Seletores comuns de preço, do mais específico ao mais genérico.
var fallbackPriceSelectors = []string{
	"[data-testid='price-value']",
	"[itemprop='price']",
	"[data-price]",
	"[class*='price']",
	"[class*='preco']",
	"[id*='price']",
}

// Padrões de preço em texto corrido: valor com prefixo de moeda, valor
// seguido de "reais" e valor precedido de "por"/"for".
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)R\$\s*([0-9][0-9.,]*)`),
	regexp.MustCompile(`(?i)([0-9][0-9.,]*)\s*reais`),
	regexp.MustCompile(`(?i)\b(?:por|for)\s*:?\s*R?\$?\s*([0-9][0-9.,]*)`),
}

var outOfStockPhrases = []string{
	"indisponível",
	"indisponivel",
	"esgotado",
	"fora de estoque",
	"unavailable",
	"out of stock",
	"sold out",
}

func (f *FallbackParser) Parse(html string) Result {
	var res Result
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res
	}

	res.Title = f.extractTitle(doc)
	res.Price = f.extractPrice(doc)

	// Texto visível: remover scripts/estilos antes de varrer frases e padrões.
	doc.Find("script, style, noscript").Remove()
	text := doc.Text()

	if res.Price == nil {
		res.Price = scanPricePatterns(text)
	}
	res.InStock = detectStock(text)
	return res
}

func (f *FallbackParser) extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if t := strings.TrimSpace(og); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func (f *FallbackParser) extractPrice(doc *goquery.Document) *float64 {
	if p := extractJSONLDPrice(doc); p != nil {
		return p
	}

	metaSelectors := []string{
		"meta[property='product:price:amount']",
		"meta[itemprop='price']",
	}
	for _, sel := range metaSelectors {
		if content, ok := doc.Find(sel).Attr("content"); ok {
			if v, ok := ParsePriceBRL(content); ok {
				return &v
			}
		}
	}

	var found *float64
	for _, sel := range fallbackPriceSelectors {
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			candidates := []string{
				s.AttrOr("content", ""),
				s.AttrOr("data-price", ""),
				strings.TrimSpace(s.Text()),
			}
			for _, c := range candidates {
				if c == "" {
					continue
				}
				if v, ok := ParsePriceBRL(c); ok {
					found = &v
					return false
				}
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// extractJSONLDPrice procura blocos de dados estruturados com objetos de
// oferta, cobrindo tanto o formato singular quanto lista. Prefere o campo
// "price" e cai para "lowPrice".
func extractJSONLDPrice(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		switch v := data.(type) {
		case map[string]interface{}:
			found = offersPrice(v["offers"])
		case []interface{}:
			for _, item := range v {
				obj, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if found = offersPrice(obj["offers"]); found != nil {
					break
				}
			}
		}
		return found == nil
	})
	return found
}

// offersPrice aceita o objeto "offers" como dicionário ou como lista de
// dicionários e normaliza o primeiro valor de preço aproveitável.
func offersPrice(offers interface{}) *float64 {
	switch o := offers.(type) {
	case map[string]interface{}:
		for _, key := range []string{"price", "lowPrice"} {
			if p := jsonNumber(o[key]); p != nil {
				return p
			}
		}
	case []interface{}:
		for _, item := range o {
			if p := offersPrice(item); p != nil {
				return p
			}
		}
	}
	return nil
}

func jsonNumber(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		if p, ok := ParsePriceBRL(n); ok {
			return &p
		}
	}
	return nil
}

func scanPricePatterns(text string) *float64 {
	for _, re := range pricePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, ok := ParsePriceBRL(m[1]); ok {
				return &v
			}
		}
	}
	return nil
}

// detectStock varre o texto visível em minúsculas por frases de falta de
// estoque. Nenhuma frase presente significa em estoque; texto vazio é
// disponibilidade desconhecida.
func detectStock(text string) *bool {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return nil
	}
	inStock := true
	for _, phrase := range outOfStockPhrases {
		if strings.Contains(lower, phrase) {
			inStock = false
			break
		}
	}
	return &inStock
}

// usado pelos adapters para montar ponteiros de preço a partir de texto.
func pricePtr(text string) *float64 {
	if v, ok := ParsePriceBRL(text); ok {
		return &v
	}
	return nil
}
