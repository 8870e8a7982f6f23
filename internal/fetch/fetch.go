// Package fetch downloads remote leaf files (https:// or s3:// dependency
// paths) into a local content cache before scheduling, so staleness and
// command execution only ever see local files.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// DefaultCacheDir is where remote files land when no cache directory is
// configured: a dot directory under the build root.
func DefaultCacheDir(root string) string {
	return filepath.Join(root, ".smartmake.cache")
}

// CachePath returns the deterministic cache location for a URL: the cache
// directory plus the hex sha256 of the URL. The same URL always maps to the
// same file, so a cached fetch survives across runs.
func CachePath(cacheDir, url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(cacheDir, hex.EncodeToString(sum[:]))
}

// Fetcher downloads remote files into the cache. A URL already present in
// the cache is not fetched again.
type Fetcher struct {
	CacheDir string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// New creates a Fetcher over the given cache directory.
func New(cacheDir string) *Fetcher {
	return &Fetcher{CacheDir: cacheDir}
}

// EnsureLocal returns the local path holding the URL's bytes, downloading
// on a cache miss. Downloads go to a temp file first and move into place
// on success, so a crashed fetch never leaves a half-written cache entry.
func (f *Fetcher) EnsureLocal(ctx context.Context, url string) (string, error) {
	cached := CachePath(f.CacheDir, url)
	if _, err := os.Stat(cached); err == nil {
		slog.Debug("remote file cached", "url", url, "path", cached)
		return cached, nil
	}

	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(f.CacheDir, "fetch-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	slog.Info("fetching remote file", "url", url)
	switch {
	case strings.HasPrefix(url, "s3://"):
		err = f.downloadS3(ctx, url, tmp)
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		err = f.downloadHTTP(ctx, url, tmp)
	default:
		err = fmt.Errorf("unsupported remote scheme: %s", url)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	if err := os.Rename(tmp.Name(), cached); err != nil {
		return "", fmt.Errorf("move into cache: %w", err)
	}
	return cached, nil
}

func (f *Fetcher) downloadHTTP(ctx context.Context, url string, dst *os.File) error {
	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	_, err = io.Copy(dst, resp.Body)
	return err
}

func (f *Fetcher) downloadS3(ctx context.Context, url string, dst *os.File) error {
	bucket, key, err := splitS3URL(url)
	if err != nil {
		return err
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return fmt.Errorf("aws session: %w", err)
	}
	downloader := s3manager.NewDownloader(sess)
	_, err = downloader.DownloadWithContext(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// splitS3URL splits "s3://bucket/key/parts" into bucket and key.
func splitS3URL(url string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 url: %s", url)
	}
	return parts[0], parts[1], nil
}
