package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "rsjpcal/internal/log"
)

// maxFeedBytes bounds a single feed download.
const maxFeedBytes = 10 << 20

// Payload is the body of one subscription feed.
type Payload struct {
	SourceID  string
	Body      []byte
	FromCache bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads feeds with conditional GET. The last good body of every
// URL is kept on disk and served when the origin is down.
type Fetcher struct {
	Client   *http.Client
	CacheDir string
}

// NewFetcher returns a Fetcher caching under cacheDir, or under
// ./var/feed-cache when cacheDir is empty.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join("var", "feed-cache")
	}
	return &Fetcher{
		Client:   &http.Client{Timeout: 15 * time.Second},
		CacheDir: cacheDir,
	}
}

// Fetch downloads rawURL for the subscription id.
func (f *Fetcher) Fetch(ctx context.Context, id, rawURL string) (Payload, error) {
	if rawURL == "" {
		return Payload{}, fmt.Errorf("ics: subscription %s has no url", id)
	}

	dir := f.cacheDirFor(rawURL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Payload{}, fmt.Errorf("ics: cache dir: %w", err)
	}
	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))
	fallback := func(reason error) (Payload, error) {
		if len(cached) == 0 {
			return Payload{}, fmt.Errorf("ics: fetch %s: %w", id, reason)
		}
		appLog.Error("ics fetch failed, serving cached body", reason, "source", id, "url", redactURL(rawURL))
		return Payload{SourceID: id, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("ics: fetch %s: %w", id, err)
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	appLog.Debug("ics fetch start", "source", id, "url", redactURL(rawURL))
	resp, err := client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if err != nil {
			return fallback(err)
		}
		meta = cacheMeta{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(dir, meta, body); err != nil {
			appLog.Error("ics cache save failed", err, "source", id)
		}
		appLog.Info("ics fetch ok", "source", id, "bytes", len(body))
		return Payload{SourceID: id, Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return Payload{}, fmt.Errorf("ics: fetch %s: 304 without cached body", id)
		}
		appLog.Info("ics fetch not modified", "source", id)
		return Payload{SourceID: id, Body: cached, FromCache: true}, nil

	default:
		return fallback(errors.New(resp.Status))
	}
}

func (f *Fetcher) cacheDirFor(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.CacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

// saveCache writes the body before the metadata so metadata never refers
// to a missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL drops everything after the host.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
