package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectAnalysisRequested triggers an analysis run over a transcript dataset.
const SubjectAnalysisRequested = "intv.analysis.requested"

// SubjectReportGenerated is emitted after a run writes its report files.
const SubjectReportGenerated = "intv.report.generated"

// SubjectAnalysisFailed is emitted when a requested run aborts with an error.
const SubjectAnalysisFailed = "intv.analysis.failed"

// AnalysisRequest asks the processor to analyze a transcript dataset.
// Missing fields fall back to the service's configured defaults.
type AnalysisRequest struct {
	RequestID    string `json:"request_id"`
	MessagesFile string `json:"messages_file"`
	SessionsFile string `json:"sessions_file"`
	Mode         string `json:"mode"`
	PolicyID     string `json:"policy_id"`
	OutputDir    string `json:"output_dir"`
}

// ReportGenerated announces the files written by a completed run.
type ReportGenerated struct {
	RequestID         string   `json:"request_id"`
	RunID             string   `json:"run_id"`
	Mode              string   `json:"mode"`
	Reports           []string `json:"reports"`
	OutputDir         string   `json:"output_dir"`
	FallbackCitations int      `json:"fallback_citations"`
	ResolvedCitations int      `json:"resolved_citations"`
}

// AnalysisFailed reports a run that could not complete.
type AnalysisFailed struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
