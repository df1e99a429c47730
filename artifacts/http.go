package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// HTTPStore fetches artifacts over plain HTTP(S) from a base URL. Transient
// failures are retried with capped exponential backoff up to the configured
// attempt count; retry policy lives here, never in the orchestrator.
type HTTPStore struct {
	baseURL  string
	client   *http.Client
	attempts int
	log      log.Logger
}

// HTTPOption customizes an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithAttempts sets how many times a fetch is tried before giving up.
func WithAttempts(n int) HTTPOption {
	return func(s *HTTPStore) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithClient overrides the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		s.client = c
	}
}

// NewHTTPStore creates a store rooted at baseURL.
func NewHTTPStore(baseURL string, lgr log.Logger, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Minute},
		attempts: 1,
		log:      lgr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads remotePath into destPath, staging through a .partial file
// so an interrupted download never lands at the destination.
func (s *HTTPStore) Fetch(ctx context.Context, remotePath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return NewFetchError(remotePath, fmt.Errorf("creating destination directory: %w", err))
	}

	var lastErr error
	for i := 0; i < s.attempts; i++ {
		err := s.fetchOnce(ctx, remotePath, destPath)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return NewFetchError(remotePath, err)
		}
		lastErr = err
		if i < s.attempts-1 {
			s.log.Warn("Artifact fetch failed, trying again",
				"remote", remotePath,
				"err", err,
				"attempt_count", i+1,
				"max_attempts", s.attempts)
			sleepContext(ctx, calcBackoff(i))
		}
	}
	return NewFetchError(remotePath, lastErr)
}

func (s *HTTPStore) fetchOnce(ctx context.Context, remotePath, destPath string) error {
	u, err := url.JoinPath(s.baseURL, remotePath)
	if err != nil {
		return fmt.Errorf("building artifact URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	partial := destPath + ".partial"
	f, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(partial)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(partial)
		return fmt.Errorf("closing artifact: %w", err)
	}
	return os.Rename(partial, destPath)
}

// Read returns the content of the object at remotePath.
func (s *HTTPStore) Read(ctx context.Context, remotePath string) ([]byte, error) {
	u, err := url.JoinPath(s.baseURL, remotePath)
	if err != nil {
		return nil, NewFetchError(remotePath, fmt.Errorf("building artifact URL: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, NewFetchError(remotePath, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewFetchError(remotePath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, NewFetchError(remotePath, fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewFetchError(remotePath, err)
	}
	return data, nil
}

func calcBackoff(i int) time.Duration {
	jitter := float64(rand.Int63n(250))
	ms := math.Min(math.Pow(2, float64(i))*1000+jitter, 3000)
	return time.Duration(ms) * time.Millisecond
}

func sleepContext(ctx context.Context, duration time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
}
