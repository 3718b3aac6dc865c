package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Driver wraps a Store with bounded retries. Each attempt reopens the
// artifact from disk so a retried upload never resumes a partial stream.
type Driver struct {
	store   Store
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// DriverOptions configures retry behaviour.
type DriverOptions struct {
	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
}

// NewDriver constructs a driver over the given store.
func NewDriver(store Store, opts DriverOptions) *Driver {
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Driver{store: store, retries: retries, backoff: backoff, logger: logger}
}

// UploadFile uploads the artifact at path under the given key, reporting
// cumulative progress as a fraction of the file size. Retries use
// exponential backoff; cancellation aborts immediately.
func (d *Driver) UploadFile(ctx context.Context, path, key string, progress func(fraction float64)) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrUploadFailed, "upload", "open", "rendered artifact missing", err)
	}
	size := info.Size()

	var lastErr error
	delay := d.backoff
	for attempt := 1; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrCancelled, "upload", "retry", "upload stopped on request", ctx.Err())
		}

		file, err := os.Open(path)
		if err != nil {
			return "", services.Wrap(services.ErrUploadFailed, "upload", "open", "rendered artifact unreadable", err)
		}

		var reportBytes func(int64)
		if progress != nil && size > 0 {
			reportBytes = func(sent int64) {
				fraction := float64(sent) / float64(size)
				if fraction > 1 {
					fraction = 1
				}
				progress(fraction)
			}
		}

		url, err := d.store.Upload(ctx, file, size, key, reportBytes)
		file.Close()
		if err == nil {
			if progress != nil {
				progress(1)
			}
			return url, nil
		}
		if errors.Is(err, services.ErrCancelled) {
			return "", err
		}
		lastErr = err
		d.logger.Warn("upload attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", d.retries),
			logging.Error(err))

		if attempt == d.retries {
			break
		}
		select {
		case <-ctx.Done():
			return "", services.Wrap(services.ErrCancelled, "upload", "retry", "upload stopped on request", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", services.Wrap(services.ErrUploadFailed, "upload", "retry",
		fmt.Sprintf("gave up after %d attempts", d.retries), lastErr)
}
