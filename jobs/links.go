package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
)

const linkTimeout = 10 * time.Second

// Link probes are paced to linkRate with bursts of linkBurst.
const (
	linkRate  = 5
	linkBurst = 5
)

func newLinkLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(linkRate), linkBurst)
}

// Link check outcomes.
const (
	LinkOK          = "ok"
	LinkBroken      = "broken"
	LinkUnreachable = "unreachable"
)

// NewLinkClient returns an HTTP client that refuses private, loopback and
// metadata addresses.
func NewLinkClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(config).Client
}

// SetLinkClient replaces the client used by HandleVerify.
func (j *ContentJobs) SetLinkClient(client *http.Client) {
	if client != nil {
		j.links = client
	}
}

// LinkReport summarises one verification run.
type LinkReport struct {
	Checked int
	Outcome map[string]int
	// Failing maps document ids to the reason their link failed.
	Failing map[int64]string
}

// HandleVerify probes the URL of every project document with a HEAD request.
// Failing links are logged and counted; the run itself only fails when the
// documents cannot be loaded.
func (j *ContentJobs) HandleVerify(ctx context.Context, _ *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskAttachmentsVerify)
	defer func() { resultErr = tracker.End(resultErr) }()

	report, err := j.VerifyLinks(ctx)
	if err != nil {
		return err
	}
	for outcome, n := range report.Outcome {
		j.metrics.AddLinks(outcome, n)
	}
	for id, reason := range report.Failing {
		j.logger.Warn("attachment link failing", slog.Int64("document_id", id), slog.String("reason", reason))
	}
	j.logger.Info("attachment links verified",
		slog.Int("checked", report.Checked),
		slog.Int("failing", len(report.Failing)),
	)
	return nil
}

// VerifyLinks loads the project documents and checks each link.
func (j *ContentJobs) VerifyLinks(ctx context.Context) (LinkReport, error) {
	docs, err := j.catalog.ProjectDocuments.List(ctx)
	if err != nil {
		return LinkReport{}, err
	}
	report := LinkReport{Outcome: map[string]int{}, Failing: map[int64]string{}}
	for _, doc := range docs {
		if doc.URL == nil || *doc.URL == "" {
			continue
		}
		if err := j.linkLimit.Wait(ctx); err != nil {
			return report, err
		}
		report.Checked++
		outcome, reason := j.checkLink(ctx, *doc.URL)
		report.Outcome[outcome]++
		if outcome != LinkOK {
			report.Failing[doc.ID] = reason
		}
	}
	return report, nil
}

func (j *ContentJobs) checkLink(ctx context.Context, url string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return LinkUnreachable, err.Error()
	}
	resp, err := j.links.Do(req)
	if err != nil {
		return LinkUnreachable, err.Error()
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return LinkBroken, fmt.Sprintf("status %d", resp.StatusCode)
	}
	return LinkOK, ""
}
