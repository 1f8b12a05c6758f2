package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading filing API responses.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Fetch downloads the URL and returns the whole body.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
