package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/wslboot/internal/ports"
)

// Fetcher is a test double for ports.Downloader and ports.Extractor.
// Downloads honor the existing-destination contract: a destination that
// was already downloaded is not fetched again.
type Fetcher struct {
	mu          sync.Mutex
	downloaded  map[string]string
	failURLs    map[string]error
	failExtract error
	transfers   []string
	extractions []string
}

// NewFetcher creates a new Fetcher mock.
func NewFetcher() *Fetcher {
	return &Fetcher{
		downloaded: make(map[string]string),
		failURLs:   make(map[string]error),
	}
}

// FailDownload makes downloads of url return err.
func (f *Fetcher) FailDownload(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failURLs[url] = err
}

// FailExtract makes every extraction return err.
func (f *Fetcher) FailExtract(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failExtract = err
}

// Download records a transfer unless dst was already downloaded.
func (f *Fetcher) Download(_ context.Context, url, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.downloaded[dst]; ok {
		return nil
	}
	if err, ok := f.failURLs[url]; ok {
		return err
	}
	f.downloaded[dst] = url
	f.transfers = append(f.transfers, url)
	return nil
}

// Extract records an extraction.
func (f *Fetcher) Extract(archive, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExtract != nil {
		return f.failExtract
	}
	if _, ok := f.downloaded[archive]; !ok {
		return fmt.Errorf("extract %s: archive was never downloaded", archive)
	}
	f.extractions = append(f.extractions, archive+" -> "+dir)
	return nil
}

// Transfers returns the URLs actually fetched, in order.
func (f *Fetcher) Transfers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transfers...)
}

// Extractions returns "archive -> dir" records, in order.
func (f *Fetcher) Extractions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.extractions...)
}

var (
	_ ports.Downloader = (*Fetcher)(nil)
	_ ports.Extractor  = (*Fetcher)(nil)
)
