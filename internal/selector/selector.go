// Package selector narrows a catalog to the Boot Camp products that support
// a model and picks the one to download.
package selector

import (
	"context"
	"fmt"

	"bcfetch/internal/catalog"
	"bcfetch/internal/errors"
	"bcfetch/internal/logger"

	"github.com/hashicorp/go-multierror"
)

// Candidate is a product that passed both the marker and the model check.
type Candidate struct {
	Key     string
	Product catalog.Product
}

// Compatibility decides whether a product supports a model.
type Compatibility interface {
	IsCompatible(ctx context.Context, p catalog.Product, model string) (bool, error)
}

// SupportSoftware returns the products carrying the Boot Camp marker, in
// catalog key order.
func SupportSoftware(c *catalog.Catalog) []Candidate {
	var out []Candidate
	for _, key := range c.Keys() {
		p, _ := c.Product(key)
		if catalog.IsSupportSoftware(p) {
			out = append(out, Candidate{Key: key, Product: p})
		}
	}
	return out
}

// SelectCandidates returns the Boot Camp products compatible with model,
// checked one at a time in catalog key order. A product whose check fails
// is skipped; those failures come back together as a *multierror.Error
// next to the surviving candidates. Only cancellation aborts the pass.
func SelectCandidates(ctx context.Context, c *catalog.Catalog, model string, compat Compatibility) ([]Candidate, error) {
	log := logger.For("selector")

	var (
		out    []Candidate
		failed *multierror.Error
	)
	for _, cand := range SupportSoftware(c) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := compat.IsCompatible(ctx, cand.Product, model)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithField("product", cand.Key).WithError(err).Warn("compatibility check failed, skipping")
			failed = multierror.Append(failed, fmt.Errorf("%s: %w", cand.Key, err))
			continue
		}
		log.WithField("product", cand.Key).WithField("compatible", ok).Debug("checked")
		if ok {
			out = append(out, cand)
		}
	}
	return out, failed.ErrorOrNil()
}

// ChooseLatest returns the candidate with the latest PostDate. Ties go to
// the earliest candidate in input order.
func ChooseLatest(cands []Candidate) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, errors.ErrEmptyInput
	}
	latest := cands[0]
	for _, c := range cands[1:] {
		if c.Product.PostDate.After(latest.Product.PostDate) {
			latest = c
		}
	}
	return latest, nil
}

// ChooseByKey returns the candidate with the given key.
func ChooseByKey(cands []Candidate, key string) (Candidate, bool) {
	for _, c := range cands {
		if c.Key == key {
			return c, true
		}
	}
	return Candidate{}, false
}

// Fallback records why Resolve picked the latest candidate instead of the
// one asked for.
type Fallback int

const (
	FallbackNone Fallback = iota
	FallbackNoKey
	FallbackInvalidKey
)

func (f Fallback) String() string {
	switch f {
	case FallbackNoKey:
		return "No key provided."
	case FallbackInvalidKey:
		return "Invalid key provided."
	default:
		return ""
	}
}

// Choice is the user's answer to "pick one yourself?".
type Choice struct {
	Manual bool
	Key    string
}

// Resolve applies the selection policy: the latest candidate unless a valid
// key was chosen manually. A missing or unknown key falls back to the latest.
func Resolve(cands []Candidate, choice Choice) (Candidate, Fallback, error) {
	if choice.Manual {
		if choice.Key == "" {
			c, err := ChooseLatest(cands)
			return c, FallbackNoKey, err
		}
		if c, ok := ChooseByKey(cands, choice.Key); ok {
			return c, FallbackNone, nil
		}
		c, err := ChooseLatest(cands)
		return c, FallbackInvalidKey, err
	}
	c, err := ChooseLatest(cands)
	return c, FallbackNone, err
}
