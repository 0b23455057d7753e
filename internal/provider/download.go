package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
)

const maxChecksumBytes = 1 << 20

// downloadToFile streams url into dst and returns the SHA-256 of what was
// written.
func downloadToFile(ctx context.Context, client *http.Client, userAgent, url, dst string) (string, error) {
	log.Debugf("starting download from %s", url)

	//nolint:gosec // G304: dst is a temp file next to the executable
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create destination file %q: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warnf("error closing file %q: %v", dst, cerr)
		}
	}()

	body, err := get(ctx, client, userAgent, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	h := sha256.New()
	//nolint:gosec // G110: release assets are checksum-verified after download
	if _, err := io.Copy(io.MultiWriter(out, h), body); err != nil {
		return "", fmt.Errorf("write %q: %w", dst, err)
	}
	log.Debugf("downloaded %s to %s", url, dst)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// downloadToMemory fetches at most limit bytes from url.
func downloadToMemory(ctx context.Context, client *http.Client, userAgent, url string, limit int64) ([]byte, error) {
	body, err := get(ctx, client, userAgent, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

func get(ctx context.Context, client *http.Client, userAgent, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}
	return resp.Body, nil
}
