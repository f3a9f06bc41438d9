package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"bcfetch/internal/errors"
	"bcfetch/internal/logger"
	"bcfetch/internal/util"

	"github.com/fatih/color"
)

// Client is used for every request made by this package.
var Client = http.DefaultClient

// Fetch retrieves the whole body of url.
var Fetch = func(ctx context.Context, url string) ([]byte, error) {
	log := logger.For("downloader")
	log.WithField("url", url).Debug("fetching")

	resp, err := get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Kind(errors.ErrNetwork, fmt.Errorf("failed to read %s: %w", url, err))
	}
	log.WithField("url", url).WithField("bytes", len(body)).Debug("fetched")
	return body, nil
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Kind(errors.ErrNetwork, err)
	}
	// The progress total must match the bytes on the wire.
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := Client.Do(req)
	if err != nil {
		return nil, errors.Kind(errors.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Kind(errors.ErrNetwork, fmt.Errorf("failed to download file from %s: %s", url, resp.Status))
	}
	return resp, nil
}

// Download streams url into dest, writing a progress line to progress after
// every chunk. An existing dest file is left untouched and no request is made.
func Download(ctx context.Context, url, dest string, progress io.Writer) error {
	if util.FileExists(dest) {
		logger.For("downloader").WithField("path", dest).Debug("already present, skipping download")
		return nil
	}
	if progress == nil {
		progress = io.Discard
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.E("download", fmt.Errorf("failed to create download directory: %w", err))
	}

	resp, err := get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total < 0 {
		return errors.Kind(errors.ErrMissingContentLength, fmt.Errorf("server did not report a size for %s", url))
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.E("download", fmt.Errorf("failed to create %s: %w", dest, err))
	}
	defer out.Close()

	pw := &progressWriter{out: progress, total: total}
	if _, err := io.Copy(io.MultiWriter(out, pw), resp.Body); err != nil {
		return errors.Kind(errors.ErrNetwork, fmt.Errorf("download of %s interrupted after %d bytes: %w", url, pw.received, err))
	}
	if err := out.Close(); err != nil {
		return errors.Kind(errors.ErrNetwork, err)
	}

	fmt.Fprint(progress, "\nDownload complete!\n")
	return nil
}

// FormatProgress renders the percentage of total received with two decimals.
func FormatProgress(received, total int64) string {
	pct := 100.0
	if total > 0 {
		pct = float64(received) / float64(total) * 100
	}
	return fmt.Sprintf("Downloading: %.2f%%", pct)
}

type progressWriter struct {
	out      io.Writer
	total    int64
	received int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.received += int64(len(b))
	fmt.Fprint(p.out, "\r"+FormatProgress(p.received, p.total))
	return len(b), nil
}

// DownloadIfNotExists downloads url to path unless a file is already there,
// reporting progress on stdout.
var DownloadIfNotExists = func(ctx context.Context, path, url string) error {
	if util.FileExists(path) {
		fmt.Printf("%s Package already downloaded at %s\n", color.GreenString("✔"), path)
		return nil
	}

	color.Cyan("i Downloading to: %s", path)
	if err := Download(ctx, url, path, os.Stdout); err != nil {
		fmt.Printf("%s Download of %s failed\n", color.RedString("✖"), url)
		return err
	}
	return nil
}
