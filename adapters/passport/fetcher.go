package passport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/ports"
)

// maxBodySize caps the upstream response read into memory
const maxBodySize = 4 << 20

// HTTPFetcher loads passports from an upstream service that serves
// GET <base>/<address> as a PassportData document. Connection errors and
// 5xx responses are retried with backoff.
type HTTPFetcher struct {
	baseURL string
	client  *retryablehttp.Client
}

var _ ports.PassportFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher for baseURL. timeout bounds each attempt.
func NewHTTPFetcher(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger.With("component", "passport_fetcher")
	}

	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchPassport returns core.ErrNotFound when the upstream has no passport for address
func (f *HTTPFetcher) FetchPassport(ctx context.Context, address string) (*core.PassportData, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+url.PathEscape(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build passport request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch passport: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("no passport for %s: %w", address, core.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("passport source returned status %d", resp.StatusCode)
	}

	var data core.PassportData
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode passport: %w", err)
	}
	if data.Address == "" {
		data.Address = address
	}
	return &data, nil
}

// MemoryFetcher serves passports from memory. It backs development mode
// when no upstream source is configured and is used by tests.
type MemoryFetcher struct {
	passports map[string]core.PassportData
	errs      map[string]error
	mu        sync.RWMutex
}

var _ ports.PassportFetcher = (*MemoryFetcher)(nil)

func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{
		passports: make(map[string]core.PassportData),
		errs:      make(map[string]error),
	}
}

// Set stores the stamps served for address
func (f *MemoryFetcher) Set(address string, stamps []core.Stamp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	address = strings.ToLower(address)
	f.passports[address] = core.PassportData{Address: address, Stamps: stamps}
	delete(f.errs, address)
}

// Fail makes every fetch for address return err
func (f *MemoryFetcher) Fail(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[strings.ToLower(address)] = err
}

func (f *MemoryFetcher) FetchPassport(ctx context.Context, address string) (*core.PassportData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	address = strings.ToLower(address)
	if err, ok := f.errs[address]; ok {
		return nil, err
	}
	data, ok := f.passports[address]
	if !ok {
		return nil, fmt.Errorf("no passport for %s: %w", address, core.ErrNotFound)
	}
	data.Stamps = append([]core.Stamp(nil), data.Stamps...)
	return &data, nil
}
