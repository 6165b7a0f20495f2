// Package hub resolves named artifacts (tokenizer files, dataset files) to
// local paths, downloading and caching them when they are not already on disk.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/textprep/prep"
)

// Endpoint is the base URL used for remote fetches. Overridable for tests.
var Endpoint = internal.DefaultHubEndpoint

// ErrNotFound marks an artifact that does not exist, locally or on the hub.
// Callers use it to tell an absent optional file from a failed fetch.
var ErrNotFound = errors.New("artifact not found")

var httpClient = &http.Client{Timeout: 10 * time.Minute}

// CachedPath resolves repoID/filename to a local file path. If repoID is
// already a path to an existing file or directory, it is returned as-is
// (joined with filename for directories). Otherwise the file is downloaded
// from the model hub into cacheDir and the cached path is returned.
func CachedPath(ctx context.Context, repoID, filename, cacheDir string) (string, error) {
	return cachedPath(ctx, repoID, filename, cacheDir, false)
}

// DatasetPath behaves like CachedPath but resolves against the dataset
// namespace of the hub.
func DatasetPath(ctx context.Context, repoID, filename, cacheDir string) (string, error) {
	return cachedPath(ctx, repoID, filename, cacheDir, true)
}

func cachedPath(ctx context.Context, repoID, filename, cacheDir string, dataset bool) (string, error) {
	if repoID == "" {
		return "", errors.New("repo identifier cannot be empty")
	}

	if info, err := os.Stat(repoID); err == nil {
		if info.IsDir() {
			local := filepath.Join(repoID, filename)
			if _, err := os.Stat(local); err != nil {
				return "", fmt.Errorf("%s not found in %s: %w", filename, repoID, ErrNotFound)
			}
			return local, nil
		}
		return repoID, nil
	}

	// Path-like identifiers are local-only; a hub repo id never looks like one.
	if filepath.IsAbs(repoID) || strings.HasPrefix(repoID, "./") || strings.HasPrefix(repoID, "../") || strings.HasSuffix(repoID, ".json") {
		return "", fmt.Errorf("local path %s does not exist: %w", repoID, ErrNotFound)
	}

	if cacheDir == "" {
		cacheDir = internal.DefaultCacheDir
	}

	target := filepath.Join(cacheDir, sanitizeRepoID(repoID), filename)
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		slog.Debug("Using cached artifact", "repo", repoID, "file", filename, "path", target)
		return target, nil
	}

	src := remoteURL(repoID, filename, dataset)
	if err := download(ctx, src, target); err != nil {
		return "", err
	}
	return target, nil
}

// DownloadURL fetches an arbitrary URL into cacheDir and returns the local path.
func DownloadURL(ctx context.Context, rawURL, cacheDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	if cacheDir == "" {
		cacheDir = internal.DefaultCacheDir
	}
	name := filepath.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("cannot derive filename from URL %s", rawURL)
	}
	target := filepath.Join(cacheDir, "downloads", sanitizeRepoID(u.Host+u.Path))
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		slog.Debug("Using cached download", "url", rawURL, "path", target)
		return target, nil
	}
	if err := download(ctx, rawURL, target); err != nil {
		return "", err
	}
	return target, nil
}

func remoteURL(repoID, filename string, dataset bool) string {
	if dataset {
		return fmt.Sprintf("%s/datasets/%s/resolve/main/%s", Endpoint, repoID, filename)
	}
	return fmt.Sprintf("%s/%s/resolve/main/%s", Endpoint, repoID, filename)
}

// download fetches src into target via a temp file and atomic rename so a
// partially written file is never observed at the cached path.
func download(ctx context.Context, src, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", filepath.Dir(target), err)
	}

	slog.Info("Downloading artifact", "url", src, "target", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", src, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", src, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("Failed to close response body", "url", src, "error", cerr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("failed to fetch %s: %w", src, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: bad status %s", src, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", src, err)
	}
	if written == 0 {
		return fmt.Errorf("downloaded file from %s is empty", src)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move download into cache: %w", err)
	}

	slog.Info("Download complete", "target", target, "bytes", written)
	return nil
}

func sanitizeRepoID(repoID string) string {
	repl := strings.NewReplacer("/", "--", ":", "-", "\\", "--")
	return repl.Replace(repoID)
}
