package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/BerylCAtieno/bill-extractor-api/internal/storage"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// DownloadedFile is a document fetched for a single extraction.
type DownloadedFile struct {
	Key         string
	Path        string
	Extension   string
	ContentType string
	Size        int64
}

type Fetcher struct {
	client  *http.Client
	store   *storage.LocalStorage
	maxSize int64
	logger  *utils.Logger
}

func New(store *storage.LocalStorage, timeout time.Duration, maxSize int64, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		store:   store,
		maxSize: maxSize,
		logger:  logger,
	}
}

// InferExtension returns the lower-cased extension of the last path segment
// of rawURL, ignoring any query string.
func InferExtension(rawURL string) (string, error) {
	u, err := parseDocumentURL(rawURL)
	if err != nil {
		return "", err
	}
	return extensionOf(u)
}

// RedactURL drops the credentials, query string and fragment of rawURL.
// Signed URLs carry their access token in the query. Unparseable input is
// replaced entirely.
func RedactURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "[unparseable url]"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func parseDocumentURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, utils.NewMalformedURLError(fmt.Sprintf("invalid document URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, utils.NewMalformedURLError("document URL must use http or https")
	}
	if u.Host == "" {
		return nil, utils.NewMalformedURLError("document URL has no host")
	}
	return u, nil
}

func extensionOf(u *url.URL) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return "", utils.NewMalformedURLError("cannot infer file type: URL path has no extension")
	}
	return ext, nil
}

// Fetch downloads rawURL into local storage under a unique key. Callers must
// Release the returned file.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*DownloadedFile, error) {
	u, err := parseDocumentURL(rawURL)
	if err != nil {
		return nil, err
	}
	ext, err := extensionOf(u)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, utils.NewMalformedURLError(fmt.Sprintf("failed to create request: %v", err))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, utils.NewDownloadFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("Document download rejected", "host", u.Host, "status", resp.StatusCode)
		return nil, utils.NewDownloadError(resp.StatusCode)
	}

	if resp.ContentLength > f.maxSize {
		return nil, utils.NewInputTooLargeError(fmt.Sprintf("document is %d bytes, limit is %d", resp.ContentLength, f.maxSize))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, utils.NewDownloadFailure(err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, utils.NewInputTooLargeError(fmt.Sprintf("document exceeds %d bytes", f.maxSize))
	}

	contentType := resp.Header.Get("Content-Type")
	key := fmt.Sprintf("downloads/%s.%s", utils.GenerateID(), ext)
	if err := f.store.Upload(ctx, key, data, contentType); err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("failed to store document: %v", err))
	}
	localPath, err := f.store.Path(key)
	if err != nil {
		return nil, utils.NewInternalError(err.Error())
	}

	// the query string may carry an access token, so only the host is logged
	f.logger.Info("Document downloaded",
		"host", u.Host,
		"extension", ext,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())

	return &DownloadedFile{
		Key:         key,
		Path:        localPath,
		Extension:   ext,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Read returns the stored bytes of file.
func (f *Fetcher) Read(ctx context.Context, file *DownloadedFile) ([]byte, error) {
	return f.store.Download(ctx, file.Key)
}

// Release deletes the local copy of file.
func (f *Fetcher) Release(ctx context.Context, file *DownloadedFile) {
	if file == nil {
		return
	}
	if err := f.store.Delete(context.WithoutCancel(ctx), file.Key); err != nil {
		f.logger.Warn("Failed to remove downloaded file", "key", file.Key, "error", err)
	}
}
