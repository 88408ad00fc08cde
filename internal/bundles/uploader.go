// Package bundles uploads workflow definition bundles to the artifact store
// the provisioner later references. Bundle file names carry the workflow name
// and version, which also determine the upload destination.
package bundles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ternarybob/arbor"
)

const (
	// DefaultMaxAttempts bounds upload retries per bundle
	DefaultMaxAttempts = 5

	// DefaultBaseDelay seeds the exponential backoff between attempts
	DefaultBaseDelay = 1 * time.Second
)

// bundleNamePattern extracts the workflow name from a bundle file name,
// e.g. nf-core-mag_1.0.0.zip -> mag
var bundleNamePattern = regexp.MustCompile(`^nf-core-([A-Za-z0-9_-]+)_`)

// WorkflowFromBundleName derives the workflow name from a bundle file name
func WorkflowFromBundleName(filename string) (string, error) {
	m := bundleNamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", fmt.Errorf("bundle %q does not match pattern nf-core-<workflow>_<version>.zip", filename)
	}
	return m[1], nil
}

// Uploader pushes bundle files to the artifact store over HTTP
type Uploader struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	logger      arbor.ILogger
	sleep       func(time.Duration)
}

// NewUploader creates a bundle uploader targeting baseURL
func NewUploader(baseURL string, timeout time.Duration, logger arbor.ILogger) *Uploader {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Uploader{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// DestinationURI is where a bundle lands in the artifact store. Bundles are
// grouped by workflow name so the provisioner can derive the same URI.
func (u *Uploader) DestinationURI(workflow, filename string) string {
	return fmt.Sprintf("%s/%s/%s", u.baseURL, workflow, filename)
}

// Upload pushes one bundle file, retrying transient failures with exponential
// backoff. The destination is derived from the bundle file name.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	filename := filepath.Base(path)
	workflow, err := WorkflowFromBundleName(filename)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read bundle %s: %w", path, err)
	}

	dest := u.DestinationURI(workflow, filename)
	for attempt := 1; ; attempt++ {
		err = u.put(ctx, dest, data)
		if err == nil {
			u.logger.Info().
				Str("bundle", filename).
				Str("destination", dest).
				Int("attempt", attempt).
				Msg("Bundle uploaded")
			return dest, nil
		}

		if attempt >= u.maxAttempts {
			return "", fmt.Errorf("upload of %s failed after %d attempts: %w", filename, attempt, err)
		}

		delay := u.baseDelay * (1 << (attempt - 1))
		u.logger.Warn().
			Err(err).
			Str("bundle", filename).
			Int("attempt", attempt).
			Int("max_attempts", u.maxAttempts).
			Dur("retry_in", delay).
			Msg("Bundle upload failed, retrying")
		u.sleep(delay)
	}
}

// UploadAll uploads a set of bundles. A failed bundle is fatal for that file
// only; the remaining bundles are still attempted and the failures are
// returned joined.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) ([]string, error) {
	uploaded := make([]string, 0, len(paths))
	var errs []error
	for _, path := range paths {
		dest, err := u.Upload(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		uploaded = append(uploaded, dest)
	}
	return uploaded, errors.Join(errs...)
}

func (u *Uploader) put(ctx context.Context, dest string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("artifact store returned status %d", resp.StatusCode)
	}
	return nil
}
