// Package promote advances a verified build's package repository from its
// staging channel to a release channel. Promotion is a separate step from
// verification: operators run it once a build's verification reported
// success.
package promote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const promoteTimeout = 30 * time.Second

// DefaultChannel is the release channel promoted into when none is given.
const DefaultChannel = "release"

// Request identifies the build to promote and the channel it moves into.
type Request struct {
	Distribution string `json:"distribution"`
	BuildID      string `json:"buildId"`
	Channel      string `json:"channel"`
}

// Promoter performs one promotion.
type Promoter interface {
	Promote(ctx context.Context, req Request) error
}

// HTTPPromoter promotes builds by posting to a promotion endpoint.
type HTTPPromoter struct {
	endpoint string
	client   *http.Client
	log      log.Logger
}

// NewHTTPPromoter creates a promoter for the given promotion endpoint.
func NewHTTPPromoter(endpoint string, lgr log.Logger) (*HTTPPromoter, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("promotion endpoint is required")
	}
	if lgr == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &HTTPPromoter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: promoteTimeout},
		log:      lgr,
	}, nil
}

// Promote posts the promotion request.
func (p *HTTPPromoter) Promote(ctx context.Context, req Request) error {
	if req.Distribution == "" {
		return fmt.Errorf("distribution is required")
	}
	if req.BuildID == "" {
		return fmt.Errorf("build ID is required")
	}
	if req.Channel == "" {
		req.Channel = DefaultChannel
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling promotion request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, promoteTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating promotion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("promoting build %q: %w", req.BuildID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("promotion of build %q returned status %d", req.BuildID, resp.StatusCode)
	}

	p.log.Info("Promoted build",
		"distribution", req.Distribution, "build_id", req.BuildID, "channel", req.Channel)
	return nil
}
