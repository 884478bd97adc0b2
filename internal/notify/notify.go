package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/observatoire/observatoire/internal/config"
	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/ranking"
)

const deliveryTimeout = 10 * time.Second

// Event describes one completed refresh.
type Event struct {
	URL            string             `json:"url"`
	Date           time.Time          `json:"date"`
	CompositeScore float64            `json:"compositeScore"`
	Scores         domain.ScoreBundle `json:"scores"`
}

// NewEvent builds the Event for a stored audit.
func NewEvent(subject string, audit domain.AuditResult) Event {
	return Event{
		URL:            subject,
		Date:           audit.Date,
		CompositeScore: ranking.Composite(&audit),
		Scores:         audit.Scores,
	}
}

// Notifier posts refresh events to the configured webhooks.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
	wg       sync.WaitGroup
}

// New returns a Notifier for the given targets. A Notifier without targets
// is valid; Refreshed becomes a no-op.
func New(webhooks []config.WebhookConfig) *Notifier {
	return &Notifier{
		webhooks: webhooks,
		client:   &http.Client{Timeout: deliveryTimeout},
	}
}

// Refreshed delivers the event for subject in the background. It matches
// the refresh.Orchestrator OnRefreshed hook.
func (n *Notifier) Refreshed(subject string, audit domain.AuditResult) {
	if len(n.webhooks) == 0 {
		return
	}
	ev := NewEvent(subject, audit)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		n.Deliver(ctx, ev)
	}()
}

// Wait blocks until background deliveries have finished.
func (n *Notifier) Wait() { n.wg.Wait() }

// Deliver sends ev to every target synchronously. Errors are logged.
func (n *Notifier) Deliver(ctx context.Context, ev Event) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		body, err := payload(wh.Type, ev)
		if err != nil {
			slog.Warn("notify: skipping webhook", "type", wh.Type, "err", err)
			continue
		}
		if err := n.post(ctx, url, body); err != nil {
			slog.Error("notify: webhook delivery failed", "type", wh.Type, "url", ev.URL, "err", err)
			continue
		}
		slog.Debug("notify: webhook delivered", "type", wh.Type, "url", ev.URL)
	}
}

func payload(kind string, ev Event) ([]byte, error) {
	summary := fmt.Sprintf("%s refreshed: composite %.1f (performance %.0f, accessibility %.0f, best practices %.0f, SEO %.0f)",
		ev.URL, ev.CompositeScore,
		ev.Scores.Performance, ev.Scores.Accessibility, ev.Scores.BestPractices, ev.Scores.SEO)
	if g := ev.Scores.CarbonGramsPerView; g != nil {
		summary += fmt.Sprintf(", %.2f g CO2 per view", *g)
	}

	switch kind {
	case config.WebhookSlack:
		return json.Marshal(map[string]string{"text": "*Audit refreshed* " + summary})
	case config.WebhookTeams:
		return json.Marshal(map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": classColor(ranking.ScoreClass(ev.CompositeScore)),
			"summary":    ev.URL,
			"title":      "Agency audit refreshed",
			"text":       summary,
		})
	case config.WebhookHTTP:
		return json.Marshal(map[string]interface{}{"event": "refreshed", "data": ev})
	default:
		return nil, fmt.Errorf("unknown webhook type %q", kind)
	}
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func classColor(class string) string {
	switch class {
	case ranking.ClassHigh:
		return "0CCE6B"
	case ranking.ClassMedium:
		return "FFA400"
	default:
		return "FF4E42"
	}
}
