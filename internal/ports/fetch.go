package ports

import "context"

// Downloader fetches remote artifacts to a local path.
//
// Download must succeed without transferring anything when dst already
// exists; the existing file is treated as a completed download.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(archive, dir string) error
}
