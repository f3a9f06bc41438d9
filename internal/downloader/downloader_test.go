package downloader

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"bcfetch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test content"))
	}))
	defer server.Close()

	body, err := Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "test content", string(body))
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNetwork), "want ErrNetwork, got %v", err)
}

func TestDownload_Success(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 100*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "BC-041-1", "BootCampSupport.pkg")
	var progress bytes.Buffer

	require.NoError(t, Download(context.Background(), server.URL, dest, &progress))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	out := progress.String()
	assert.Contains(t, out, "\rDownloading: ")
	assert.Contains(t, out, "Downloading: 100.00%")
	assert.True(t, strings.HasSuffix(out, "\nDownload complete!\n"), "unexpected progress tail: %q", out)
}

func TestDownload_SkipsExistingFile(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("fresh content"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "BootCampSupport.pkg")

	require.NoError(t, Download(context.Background(), server.URL, dest, nil))
	first, err := os.ReadFile(dest)
	require.NoError(t, err)

	require.NoError(t, Download(context.Background(), server.URL, dest, nil))
	second, err := os.ReadFile(dest)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, first, second)
}

func TestDownload_MissingContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Flushing before the body forces chunked encoding.
		w.(http.Flusher).Flush()
		w.Write([]byte("streamed without a length"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "BootCampSupport.pkg")
	err := Download(context.Background(), server.URL, dest, nil)

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMissingContentLength), "want ErrMissingContentLength, got %v", err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file should be created without a content length")
}

func TestDownload_TruncatedBodyLeavesPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("only ten b"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "BootCampSupport.pkg")
	err := Download(context.Background(), server.URL, dest, nil)

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNetwork), "want ErrNetwork, got %v", err)
	_, statErr := os.Stat(dest)
	assert.NoError(t, statErr, "partial file should be left on disk")
}

func TestDownload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := Download(context.Background(), server.URL, filepath.Join(t.TempDir(), "pkg"), nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNetwork))
}

func TestDownload_CreateFailureIsWrapped(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	// A directory where the package should go is not a finished download.
	dest := filepath.Join(t.TempDir(), "BootCampSupport.pkg")
	require.NoError(t, os.MkdirAll(dest, 0755))

	err := DownloadIfNotExists(context.Background(), dest, server.URL)
	require.Error(t, err)

	var opErr *errors.Error
	require.True(t, stderrors.As(err, &opErr), "got %T: %v", err, err)
	assert.Equal(t, "download", opErr.Op)
	assert.Contains(t, err.Error(), dest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.DirExists(t, dest)
}

func TestDownload_DirectoryCreateFailureIsWrapped(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := Download(context.Background(), "http://127.0.0.1:0/unused", filepath.Join(blocker, "sub", "pkg"), nil)
	require.Error(t, err)

	var opErr *errors.Error
	require.True(t, stderrors.As(err, &opErr))
	assert.Equal(t, "download", opErr.Op)
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name     string
		received int64
		total    int64
		want     string
	}{
		{name: "start", received: 0, total: 200, want: "Downloading: 0.00%"},
		{name: "third", received: 1, total: 3, want: "Downloading: 33.33%"},
		{name: "done", received: 200, total: 200, want: "Downloading: 100.00%"},
		{name: "empty body", received: 0, total: 0, want: "Downloading: 100.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatProgress(tt.received, tt.total))
		})
	}
}
