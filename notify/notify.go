// Package notify publishes the aggregated outcome of a verification run.
// Exactly one notification is published per run, after every component holds
// a terminal outcome; there are no per-component notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/runner"
	"github.com/ethereum/go-ethereum/log"
)

const publishTimeout = 30 * time.Second

// Notifier delivers one run summary to an external channel.
type Notifier interface {
	Publish(ctx context.Context, summary *runner.Summary) error
}

// ComponentReport is one component's entry in the published payload.
type ComponentReport struct {
	Name            string  `json:"name"`
	Version         string  `json:"version"`
	Outcome         string  `json:"outcome"`
	Reason          string  `json:"reason,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
	Attempts        int     `json:"attempts"`
	Excerpt         string  `json:"excerpt,omitempty"`
}

// Payload is the wire form of a run summary. Components appear in manifest
// order so consumers render them the way the build manifest lists them.
type Payload struct {
	RunID           string            `json:"runId"`
	Distribution    string            `json:"distribution"`
	BuildID         string            `json:"buildId"`
	Agent           string            `json:"agent"`
	Overall         string            `json:"overall"`
	DurationSeconds float64           `json:"durationSeconds"`
	Total           int               `json:"total"`
	Passed          int               `json:"passed"`
	Failed          int               `json:"failed"`
	Errored         int               `json:"errored"`
	Components      []ComponentReport `json:"components"`
}

// NewPayload flattens a run summary into its wire form.
func NewPayload(summary *runner.Summary) Payload {
	p := Payload{
		RunID:           summary.RunID,
		Distribution:    summary.Distribution,
		BuildID:         summary.BuildID,
		Agent:           summary.AgentLabel,
		Overall:         string(summary.Overall),
		DurationSeconds: summary.Duration.Seconds(),
		Total:           summary.Stats.Total,
		Passed:          summary.Stats.Passed,
		Failed:          summary.Stats.Failed,
		Errored:         summary.Stats.Errored,
		Components:      make([]ComponentReport, 0, len(summary.Order)),
	}
	for _, name := range summary.Order {
		res := summary.PerComponent[name]
		if res == nil {
			continue
		}
		report := ComponentReport{
			Name:            res.Component,
			Version:         res.Version,
			Outcome:         string(res.Outcome),
			DurationSeconds: res.Duration.Seconds(),
			Attempts:        res.Attempts,
			Excerpt:         res.Diagnostics.Excerpt,
		}
		if res.Reason != nil {
			report.Reason = res.Reason.Error()
		}
		p.Components = append(p.Components, report)
	}
	return p
}

// WebhookNotifier publishes run summaries as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    log.Logger
}

// NewWebhookNotifier creates a notifier posting to the given URL.
func NewWebhookNotifier(url string, lgr log.Logger) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if lgr == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: publishTimeout},
		log:    lgr,
	}, nil
}

// Publish posts the summary payload. Any non-2xx response is an error; the
// caller decides whether a failed publish matters for the run's verdict.
func (n *WebhookNotifier) Publish(ctx context.Context, summary *runner.Summary) error {
	payload, err := json.Marshal(NewPayload(summary))
	if err != nil {
		return fmt.Errorf("marshaling notification payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	n.log.Info("Published run notification", "run_id", summary.RunID, "overall", summary.Overall)
	return nil
}

// NopNotifier discards summaries. Used when no notification channel is
// configured; the run still logs and prints its summary.
type NopNotifier struct{}

func (NopNotifier) Publish(ctx context.Context, summary *runner.Summary) error {
	return nil
}
