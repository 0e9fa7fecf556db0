package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader fetches the stops.lt GTFS archive with conditional requests.
type Downloader struct {
	client *http.Client
	url    string
	dir    string
	logger *slog.Logger
}

// NewDownloader creates a Downloader for the given archive URL, staging
// downloads in dir.
func NewDownloader(url, dir string, logger *slog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 5 * time.Minute},
		url:    url,
		dir:    dir,
		logger: logger,
	}
}

// Validators are the HTTP cache validators of a downloaded archive.
type Validators struct {
	LastModified string
	ETag         string
}

// Changed sends a HEAD request with the previous validators and reports
// whether the archive needs downloading again.
func (d *Downloader) Changed(ctx context.Context, prev Validators) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", d.url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("HEAD request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		d.logger.Info("GTFS archive not modified")
		return false, nil
	}
	if prev.ETag != "" && resp.Header.Get("ETag") == prev.ETag {
		return false, nil
	}
	return true, nil
}

// Download saves the archive to a temp file in the staging dir. The caller
// removes the file.
func (d *Downloader) Download(ctx context.Context) (string, Validators, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", Validators{}, fmt.Errorf("create dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", d.url, nil)
	if err != nil {
		return "", Validators{}, fmt.Errorf("create request: %w", err)
	}

	d.logger.Info("downloading GTFS archive", "url", d.url)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", Validators{}, fmt.Errorf("GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", Validators{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(d.dir, "gtfs-*.zip")
	if err != nil {
		return "", Validators{}, fmt.Errorf("create temp file: %w", err)
	}
	defer tmpFile.Close()

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", Validators{}, fmt.Errorf("write file: %w", err)
	}

	d.logger.Info("GTFS archive downloaded",
		"path", filepath.Base(tmpFile.Name()),
		"size_kb", written/1024,
	)
	return tmpFile.Name(), Validators{
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}
