// Package catalog decodes the Apple software update catalog, a property list
// keyed by product identifier.
package catalog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"bcfetch/internal/errors"

	"howett.net/plist"
)

// SupportMarker identifies Boot Camp support software in a product's
// ServerMetadataURL.
const SupportMarker = "BootCamp"

// Catalog is a decoded software update catalog.
type Catalog struct {
	Version  int
	Products map[string]Product
	keys     []string
}

// Product is one catalog entry.
type Product struct {
	Key               string
	PostDate          time.Time
	RawPostDate       string
	ServerMetadataURL string
	Distributions     map[string]string
	Packages          []Package
}

// Package is a downloadable payload of a product. Digest is kept for
// display only; downloads are not verified.
type Package struct {
	Digest      string
	Size        int64
	URL         string
	MetadataURL string
}

type rawCatalog struct {
	CatalogVersion int                   `plist:"CatalogVersion"`
	Products       map[string]rawProduct `plist:"Products"`
}

type rawProduct struct {
	PostDate          interface{}       `plist:"PostDate"`
	ServerMetadataURL string            `plist:"ServerMetadataURL"`
	Distributions     map[string]string `plist:"Distributions"`
	Packages          []rawPackage      `plist:"Packages"`
}

type rawPackage struct {
	Digest      string `plist:"Digest"`
	Size        int64  `plist:"Size"`
	URL         string `plist:"URL"`
	MetadataURL string `plist:"MetadataURL"`
}

// Parse decodes a catalog property list. Unknown keys are ignored.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if _, err := plist.Unmarshal(data, &raw); err != nil {
		return nil, errors.Kind(errors.ErrParse, err)
	}
	if raw.Products == nil {
		return nil, errors.Kind(errors.ErrParse, fmt.Errorf("missing Products"))
	}

	products := make([]Product, 0, len(raw.Products))
	for _, key := range productOrder(data, raw.Products) {
		rp := raw.Products[key]
		p := Product{
			Key:               key,
			ServerMetadataURL: rp.ServerMetadataURL,
			Distributions:     rp.Distributions,
		}
		p.PostDate, p.RawPostDate = parsePostDate(rp.PostDate)
		for _, pkg := range rp.Packages {
			p.Packages = append(p.Packages, Package(pkg))
		}
		products = append(products, p)
	}
	c := New(products...)
	c.Version = raw.CatalogVersion
	return c, nil
}

// productOrder returns the keys of products in document order. Order is
// recovered from XML property lists; keys it cannot place (binary plists,
// malformed XML) follow in lexical order.
func productOrder(data []byte, products map[string]rawProduct) []string {
	keys := make([]string, 0, len(products))
	seen := make(map[string]bool, len(products))
	for _, key := range xmlProductKeys(data) {
		if _, ok := products[key]; ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	var rest []string
	for key := range products {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// xmlProductKeys scans an XML property list for the keys of the top-level
// Products dictionary. It returns nil for anything that is not XML.
func xmlProductKeys(data []byte) []string {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
		return nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		keys         []string
		depth        int
		productsAt   = -1
		wantProducts bool
		inKey        bool
		text         strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "key" {
				inKey = true
				text.Reset()
				continue
			}
			if wantProducts && depth == 1 && t.Name.Local == "dict" {
				productsAt = depth + 1
			}
			wantProducts = false
			if t.Name.Local == "dict" || t.Name.Local == "array" {
				depth++
			}
		case xml.CharData:
			if inKey {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "key":
				inKey = false
				if depth == 1 {
					wantProducts = text.String() == "Products"
				}
				if depth == productsAt {
					keys = append(keys, text.String())
				}
			case "dict", "array":
				if depth == productsAt {
					return keys
				}
				depth--
			}
		}
	}
}

// New builds a catalog from products, keyed by Product.Key. Keys keep the
// order of the arguments; a repeated key replaces the earlier product.
func New(products ...Product) *Catalog {
	c := &Catalog{
		Products: make(map[string]Product, len(products)),
		keys:     make([]string, 0, len(products)),
	}
	for _, p := range products {
		if _, dup := c.Products[p.Key]; !dup {
			c.keys = append(c.keys, p.Key)
		}
		c.Products[p.Key] = p
	}
	return c
}

var postDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePostDate accepts a plist <date> or a string timestamp. Unparseable
// values give the zero time so they rank oldest.
func parsePostDate(v interface{}) (time.Time, string) {
	switch d := v.(type) {
	case time.Time:
		return d, d.UTC().Format(time.RFC3339)
	case string:
		for _, layout := range postDateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, d
			}
		}
		return time.Time{}, d
	default:
		return time.Time{}, ""
	}
}

// Keys returns the product keys in catalog order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Product looks up a product by key.
func (c *Catalog) Product(key string) (Product, bool) {
	p, ok := c.Products[key]
	return p, ok
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.keys)
}

// IsSupportSoftware reports whether p carries the Boot Camp marker.
func IsSupportSoftware(p Product) bool {
	return p.ServerMetadataURL != "" && strings.Contains(p.ServerMetadataURL, SupportMarker)
}

// FirstPackage returns the package that gets downloaded.
func (p Product) FirstPackage() (Package, bool) {
	if len(p.Packages) == 0 {
		return Package{}, false
	}
	return p.Packages[0], true
}
