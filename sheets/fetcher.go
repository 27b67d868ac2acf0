// Package sheets реализует внешний источник ростера: опубликованный CSV
// (обычно Google-таблица, File → Publish to web), по одному имени в строке.
package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxRosterNames caps how many names one fetch may return; anything beyond
// the cap is a misconfigured sheet, not a roster.
const MaxRosterNames = 500

var (
	ErrSheetURLMissing = errors.New("roster sheet url is not configured")
	ErrSheetTooLarge   = errors.New("roster sheet exceeds the allowed size")
)

// RosterSource supplies a bounded list of raw participant names.
type RosterSource interface {
	FetchNames(ctx context.Context, sheetURL string) ([]string, error)
}

type CSVFetcher struct {
	client *http.Client
}

func NewCSVFetcher(timeout time.Duration) *CSVFetcher {
	return &CSVFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchNames downloads the CSV and returns the first column of every
// non-empty row. Any transport or parse failure is returned verbatim so the
// caller can distinguish "roster unavailable" from "empty roster".
func (f *CSVFetcher) FetchNames(ctx context.Context, sheetURL string) ([]string, error) {
	if sheetURL == "" {
		return nil, ErrSheetURLMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sheetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build roster request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster sheet returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1 // листы часто имеют неровные строки

	names := make([]string, 0, 64)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse roster sheet: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		names = append(names, name)
		if len(names) > MaxRosterNames {
			return nil, ErrSheetTooLarge
		}
	}
	return names, nil
}
