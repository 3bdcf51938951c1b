package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// Result é o que um parser consegue extrair de uma página de produto.
// Campo ausente fica nil/vazio; a extração nunca retorna erro.
type Result struct {
	Title   string
	Price   *float64
	InStock *bool
}

// Parser extrai título, preço e disponibilidade de um HTML bruto.
// Deve ser uma função pura sobre o texto recebido.
type Parser interface {
	Parse(html string) Result
}

// Registry mapeia domínios conhecidos para parsers específicos de loja.
type Registry struct {
	adapters map[string]Parser
	fallback Parser
}

// NewRegistry cria o registro com todos os adapters conhecidos.
func NewRegistry() *Registry {
	magalu := NewMagaluParser()
	ml := NewMercadoLivreParser()
	return &Registry{
		adapters: map[string]Parser{
			"magazineluiza.com.br":        magalu,
			"magalu.com":                  magalu,
			"americanas.com.br":           NewAmericanasParser(),
			"mercadolivre.com.br":         ml,
			"produto.mercadolivre.com.br": ml,
		},
		fallback: NewFallbackParser(),
	}
}

// Select retorna o parser para o domínio informado (já sem o prefixo "www.").
// Domínio desconhecido cai no extrator genérico.
func (r *Registry) Select(domain string) Parser {
	if p, ok := r.adapters[domain]; ok {
		return p
	}
	return r.fallback
}

// DomainForURL extrai o domínio normalizado (minúsculo, sem "www.") de uma URL.
func DomainForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL inválida: %s", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("URL sem host: %s", rawURL)
	}
	return host, nil
}
