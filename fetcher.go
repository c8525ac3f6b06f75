package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/singleflight"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// AssetCache is the set of basenames downloaded during one run
type AssetCache struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewAssetCache creates an empty cache
func NewAssetCache() *AssetCache {
	return &AssetCache{names: make(map[string]struct{})}
}

// Has reports whether name was already downloaded
func (c *AssetCache) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.names[name]
	return ok
}

// Add records name as downloaded
func (c *AssetCache) Add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name] = struct{}{}
}

// Len returns the number of distinct downloaded assets
func (c *AssetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// AssetFetcher downloads remote images into the assets directory
type AssetFetcher struct {
	client     *http.Client
	apiBaseURL string
	dir        string
	cache      *AssetCache
	inflight   singleflight.Group
}

// NewAssetFetcher creates a fetcher writing into dir. Relative image URLs
// are resolved against apiBaseURL.
func NewAssetFetcher(client *http.Client, apiBaseURL, dir string, cache *AssetCache) *AssetFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if cache == nil {
		cache = NewAssetCache()
	}
	return &AssetFetcher{
		client:     client,
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		dir:        dir,
		cache:      cache,
	}
}

// Cache returns the run's dedup cache
func (f *AssetFetcher) Cache() *AssetCache {
	return f.cache
}

// Resolve downloads remoteURL unless its basename is already cached and
// returns the local filename. Failures are logged and reported as ok=false.
func (f *AssetFetcher) Resolve(ctx context.Context, remoteURL string) (string, bool) {
	if remoteURL == "" {
		return "", false
	}

	filename, err := assetFilename(remoteURL)
	if err != nil {
		log.Printf("  ✗ Bad image URL %s: %v", remoteURL, err)
		return "", false
	}

	if f.cache.Has(filename) {
		debugLog("asset cache hit: %s", filename)
		return filename, true
	}

	// Siblings converted concurrently may reference the same file
	_, err, _ = f.inflight.Do(filename, func() (any, error) {
		if f.cache.Has(filename) {
			return nil, nil
		}
		if err := f.download(ctx, f.fetchURL(remoteURL), filename); err != nil {
			return nil, err
		}
		f.cache.Add(filename)
		return nil, nil
	})
	if err != nil {
		log.Printf("  ✗ Failed to download %s: %v", remoteURL, err)
		return "", false
	}

	return filename, true
}

// fetchURL builds the URL to download. The asset host serves paths
// without the API's /api prefix.
func (f *AssetFetcher) fetchURL(remoteURL string) string {
	if strings.HasPrefix(remoteURL, "http") {
		return remoteURL
	}
	return f.apiBaseURL + strings.TrimPrefix(remoteURL, "/api")
}

func (f *AssetFetcher) download(ctx context.Context, fetchURL, filename string) error {
	log.Printf("  → Downloading: %s", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", fetchURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, URL: fetchURL}
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating assets directory: %w", err)
	}

	outputPath := filepath.Join(f.dir, filename)
	if err := atomic.WriteFile(outputPath, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}

	// atomic.WriteFile leaves new files with temp-file permissions
	if err := os.Chmod(outputPath, 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", filename, err)
	}

	return nil
}

// assetFilename returns the decoded basename of the URL's final path segment
func assetFilename(remoteURL string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", err
	}

	raw := path.Base(u.EscapedPath())
	if raw == "." || raw == "/" {
		return "", fmt.Errorf("no filename in %q", remoteURL)
	}

	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}

	// The decoded name must stay inside the assets directory
	if name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("unsafe filename %q", name)
	}

	return name, nil
}
