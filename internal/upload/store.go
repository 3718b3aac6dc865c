package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipforge/internal/services"
)

// Store places a rendered artifact into remote storage and returns its
// public URL.
type Store interface {
	Upload(ctx context.Context, body io.Reader, size int64, key string, progress func(bytesSent int64)) (string, error)
}

// HTTPStore uploads via a single PUT to an S3-compatible endpoint.
type HTTPStore struct {
	endpoint      string
	bucket        string
	publicBaseURL string
	client        *http.Client
}

// HTTPStoreOptions configures an HTTPStore.
type HTTPStoreOptions struct {
	Endpoint      string
	Bucket        string
	PublicBaseURL string
	Timeout       time.Duration
}

// NewHTTPStore constructs a store against the configured storage endpoint.
func NewHTTPStore(opts HTTPStoreOptions) (*HTTPStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "configure", "storage endpoint is required", nil)
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "configure", "storage endpoint is not a valid URL", err)
	}
	bucket := strings.Trim(strings.TrimSpace(opts.Bucket), "/")
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "configure", "storage bucket is required", nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	base := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if base == "" {
		base = endpoint + "/" + bucket
	}
	return &HTTPStore{
		endpoint:      endpoint,
		bucket:        bucket,
		publicBaseURL: base,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

// Upload PUTs the body under the given key and returns the object's public URL.
func (s *HTTPStore) Upload(ctx context.Context, body io.Reader, size int64, key string, progress func(int64)) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", services.Wrap(services.ErrUploadFailed, "upload", "put", "object key is required", nil)
	}

	reader := body
	if progress != nil {
		reader = &countingReader{inner: body, report: progress}
	}

	target := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, reader)
	if err != nil {
		return "", services.Wrap(services.ErrUploadFailed, "upload", "put", "build request", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "video/mp4")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrCancelled, "upload", "put", "upload stopped on request", ctx.Err())
		}
		return "", services.Wrap(services.ErrUploadFailed, "upload", "put", "storage endpoint unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", services.Wrap(services.ErrUploadFailed, "upload", "put", fmt.Sprintf("storage returned status %d", resp.StatusCode), nil)
	}
	return s.publicBaseURL + "/" + key, nil
}

var _ Store = (*HTTPStore)(nil)

// countingReader reports cumulative bytes handed to the transport.
type countingReader struct {
	inner  io.Reader
	sent   int64
	report func(int64)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.report(r.sent)
	}
	return n, err
}
