package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var nonPriceChars = regexp.MustCompile(`[^0-9,.]`)

// ParsePriceBRL converte texto de preço no formato brasileiro para decimal.
// "R$ 1.234,56" vira 1234.56. Heurística: havendo exatamente uma vírgula e no
// máximo um ponto, o ponto é separador de milhar e a vírgula é o decimal.
// Retorna false quando o texto não contém um número válido.
func ParsePriceBRL(text string) (float64, bool) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	if strings.Count(cleaned, ",") == 1 && strings.Count(cleaned, ".") <= 1 {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
