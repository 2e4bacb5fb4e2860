// Package fetch provides the download and archive extraction adapters,
// backed by hashicorp/go-getter.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/adapters/logging"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	getter "github.com/hashicorp/go-getter"
)

const partSuffix = ".part"

// Downloader fetches artifacts into a local cache. A destination that
// already exists is a completed download and is never fetched again.
type Downloader struct {
	logger ports.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithLogger sets the logger used for cache and transfer messages.
func WithLogger(l ports.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = l
	}
}

// NewDownloader creates a new Downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches src to dst. The transfer goes to dst.part and is renamed
// on success, so an interrupted download is never mistaken for a cache hit.
// go-getter source features such as ?checksum=sha256:... are honored.
func (d *Downloader) Download(ctx context.Context, src, dst string) error {
	logger := d.logger
	if logger == nil {
		logger = ports.LoggerFromContext(ctx)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if _, err := os.Stat(dst); err == nil {
		logger.Debug(ctx, "download cached", ports.F("url", src), ports.F("path", dst))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	pwd, err := os.Getwd()
	if err != nil {
		return err
	}

	part := dst + partSuffix
	_ = os.Remove(part)

	logger.Info(ctx, "downloading", ports.F("url", src), ports.F("path", dst))

	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  part,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
		// Archives are cached as-is and unpacked by the Extractor.
		Decompressors: map[string]getter.Decompressor{},
	}
	if err := client.Get(); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("download %s: %w", src, err)
	}

	if err := os.Rename(part, dst); err != nil {
		return fmt.Errorf("finalize download %s: %w", dst, err)
	}
	return nil
}

// Extractor unpacks archives with go-getter's decompressors, chosen by the
// archive's extension (zip, tar.gz, tgz, tar.xz, ...).
type Extractor struct {
	decompressors map[string]getter.Decompressor
}

// NewExtractor creates an Extractor with go-getter's default decompressors.
func NewExtractor() *Extractor {
	return &Extractor{decompressors: getter.Decompressors}
}

// Extract unpacks archive into dir, creating dir if needed.
func (e *Extractor) Extract(archive, dir string) error {
	d, ok := e.decompressorFor(archive)
	if !ok {
		return fmt.Errorf("extract %s: unsupported archive type", archive)
	}
	if err := d.Decompress(dir, archive, true, 0); err != nil {
		return fmt.Errorf("extract %s: %w", archive, err)
	}
	return nil
}

// decompressorFor matches the longest known extension so ".tar.gz" wins
// over ".gz".
func (e *Extractor) decompressorFor(archive string) (getter.Decompressor, bool) {
	exts := make([]string, 0, len(e.decompressors))
	for ext := range e.decompressors {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })

	name := strings.ToLower(filepath.Base(archive))
	for _, ext := range exts {
		if strings.HasSuffix(name, "."+ext) {
			return e.decompressors[ext], true
		}
	}
	return nil, false
}

var (
	_ ports.Downloader = (*Downloader)(nil)
	_ ports.Extractor  = (*Extractor)(nil)
)
