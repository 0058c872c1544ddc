package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ---------------------------------------------------------------------------
// Asset resolution: turn a completed video operation's remote URI into a
// locally playable handle. The provider URI requires the API key as a query
// parameter.
// ---------------------------------------------------------------------------

// VideoHandle is a locally held, playable video asset. Handles hold the full
// binary in memory and must be released when superseded or when the owning
// session resets.
type VideoHandle struct {
	Data        []byte
	ContentType string
	SourceURI   string

	released bool
}

// Release drops the binary. Safe to call more than once.
func (h *VideoHandle) Release() {
	h.Data = nil
	h.released = true
}

// Released reports whether the handle has been released.
func (h *VideoHandle) Released() bool {
	return h.released
}

// ResolveVideoAsset fetches the video behind a completed operation's URI.
//
// Primary strategy: parse the URI and append the key as a proper query
// parameter. Fallback: when URI parsing/construction fails (malformed URI),
// degrade to raw string concatenation of the key before fetching. Both
// strategies produce an equivalent handle; the fallback exists purely for
// malformed-URI robustness. Fails with ErrAssetResolution when both fail.
func (c *Client) ResolveVideoAsset(ctx context.Context, uri string) (*VideoHandle, error) {
	return resolveVideoAsset(ctx, uri, c.apiKey(), c.fetchVideo)
}

type fetchFunc func(ctx context.Context, url string) (*VideoHandle, error)

func resolveVideoAsset(ctx context.Context, uri, key string, fetch fetchFunc) (*VideoHandle, error) {
	handle, primaryErr := fetchWithQueryKey(ctx, uri, key, fetch)
	if primaryErr == nil {
		return handle, nil
	}

	// Malformed-URI fallback: raw concatenation of the key.
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	handle, fallbackErr := fetch(ctx, uri+sep+"key="+key)
	if fallbackErr == nil {
		return handle, nil
	}

	return nil, fmt.Errorf("%w: primary: %v; fallback: %v", ErrAssetResolution, primaryErr, fallbackErr)
}

func fetchWithQueryKey(ctx context.Context, uri, key string, fetch fetchFunc) (*VideoHandle, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset uri: %w", err)
	}

	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()

	return fetch(ctx, u.String())
}

func (c *Client) fetchVideo(ctx context.Context, fetchURL string) (*VideoHandle, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("video fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read video body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	return &VideoHandle{Data: data, ContentType: contentType, SourceURI: fetchURL}, nil
}
