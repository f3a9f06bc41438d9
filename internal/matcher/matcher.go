// Package matcher decides whether a catalog product supports a Mac model by
// scanning the product's distribution document for model identifiers.
package matcher

import (
	"context"
	"fmt"
	"regexp"

	"bcfetch/internal/catalog"
	"bcfetch/internal/config"
	"bcfetch/internal/logger"
)

// ModelPattern is the shape of a hardware model identifier, e.g. iMac12,2.
// Unrelated text of the same shape also matches; that is accepted.
var ModelPattern = regexp.MustCompile(`[A-Za-z]{4,12}[0-9]{1,2},[0-9]{1,6}`)

// ExtractModels returns every model identifier in text, in order of
// appearance. Duplicates are kept.
func ExtractModels(text string) []string {
	return ModelPattern.FindAllString(text, -1)
}

// Matcher fetches distribution documents to check model support.
type Matcher struct {
	Fetch  catalog.Fetcher
	Locale string
}

// New returns a Matcher reading the English distribution.
func New(fetch catalog.Fetcher) *Matcher {
	return &Matcher{Fetch: fetch, Locale: config.DefaultLocale}
}

// SupportedModels returns the identifiers listed in p's distribution
// document. A product without a distribution for the locale lists none.
func (m *Matcher) SupportedModels(ctx context.Context, p catalog.Product) ([]string, error) {
	url, ok := p.Distributions[m.Locale]
	if !ok {
		logger.For("matcher").WithField("product", p.Key).Debugf("no %s distribution", m.Locale)
		return nil, nil
	}

	body, err := m.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch distribution for %s: %w", p.Key, err)
	}
	return ExtractModels(string(body)), nil
}

// IsCompatible reports whether model appears verbatim among p's supported
// models.
func (m *Matcher) IsCompatible(ctx context.Context, p catalog.Product, model string) (bool, error) {
	models, err := m.SupportedModels(ctx, p)
	if err != nil {
		return false, err
	}
	for _, id := range models {
		if id == model {
			return true, nil
		}
	}
	return false, nil
}
