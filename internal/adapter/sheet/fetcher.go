package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// ErrUnexpectedStatus is returned when the sheet endpoint answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status from sheet endpoint")

const maxBodyBytes = 16 << 20

// Fetcher downloads the published CSV export of a spreadsheet.
// It implements pipeline.Source.
type Fetcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for url. Each request is bounded by timeout.
func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch returns the sheet body as text.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read sheet body: %w", err)
	}
	f.logger.Debug("sheet fetched", "bytes", len(body), "status", resp.StatusCode)
	return string(body), nil
}

// FileSource serves sheet text from a local file, for offline runs.
type FileSource struct {
	Path string
}

// Fetch reads the whole file.
func (s FileSource) Fetch(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read sheet file: %w", err)
	}
	return string(data), nil
}
