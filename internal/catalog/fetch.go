package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"bcfetch/internal/errors"
	"bcfetch/internal/logger"

	"github.com/klauspost/compress/gzip"
)

// Fetcher retrieves a document body.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

var gzipMagic = []byte{0x1f, 0x8b}

// Fetch downloads and parses the catalog at url. Gzip bodies are inflated.
func Fetch(ctx context.Context, fetch Fetcher, url string) (*Catalog, error) {
	log := logger.For("catalog")

	data, err := fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, gzipMagic) {
		log.WithField("compressed", len(data)).Debug("inflating gzip catalog")
		data, err = gunzip(data)
		if err != nil {
			return nil, errors.Kind(errors.ErrParse, fmt.Errorf("failed to decompress catalog: %w", err))
		}
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	log.WithField("products", c.Len()).Debug("catalog parsed")
	return c, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
