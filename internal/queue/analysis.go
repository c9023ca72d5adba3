package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/gridline/fraudgraph/backend/internal/util"
	"github.com/gridline/fraudgraph/backend/pkg/detect"
	"github.com/gridline/fraudgraph/backend/pkg/leaselock"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
)

// AnalysisJobMsg is the payload of one queued analysis job.
type AnalysisJobMsg struct {
	JobID   string `json:"job_id"`
	Company string `json:"company"`
}

// AnalysisResultMsg is published to subscribers when a job finishes. Results
// are not persisted; the topic stream is the only delivery channel.
type AnalysisResultMsg struct {
	JobID      string         `json:"job_id"`
	Company    string         `json:"company"`
	FinishedAt time.Time      `json:"finished_at"`
	Result     *detect.Result `json:"result"`
}

// ProcessAnalysisMessage runs one queued analysis under a per-company lease
// and publishes the result to the analysis.result.<company> topic.
func ProcessAnalysisMessage(
	ctx context.Context,
	ch *amqp091.Channel,
	locks *leaselock.Client,
	analyzer *detect.Analyzer,
	msgBody string,
) error {
	var msg AnalysisJobMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal analysis job: %w", err)
	}
	if msg.Company == "" {
		return fmt.Errorf("analysis job %s has no company", msg.JobID)
	}

	logger.Info("[Analysis] Starting job", "job_id", msg.JobID, "company", msg.Company)

	return locks.WithLease(ctx, "analysis:"+strings.ToLower(msg.Company), leaselock.Options{
		TTL:  2 * time.Minute,
		Wait: true,
	}, func(ctx context.Context) error {
		result, err := analyzer.Analyze(ctx, msg.Company)
		if err != nil {
			return fmt.Errorf("analysis failed for %s: %w", msg.Company, err)
		}

		payload, err := json.Marshal(AnalysisResultMsg{
			JobID:      msg.JobID,
			Company:    result.Company.ID,
			FinishedAt: time.Now().UTC(),
			Result:     result,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal analysis result: %w", err)
		}

		topic := ResultTopic(result.Company.ID)
		err = util.RetryErrWithContext(ctx, 3, func(context.Context) error {
			return PublishTopic(ch, topic, payload)
		})
		if err != nil {
			return fmt.Errorf("failed to publish analysis result: %w", err)
		}

		logger.Info("[Analysis] Job finished",
			"job_id", msg.JobID,
			"company", result.Company.ID,
			"risk", result.RiskScore,
			"opportunity", result.OpportunityScore)
		return nil
	})
}

// ResultTopic is the routing key results for a company are published under.
// Spaces and dots in company identifiers are folded to underscores so the
// identifier occupies exactly one routing key segment.
func ResultTopic(companyID string) string {
	segment := strings.NewReplacer(" ", "_", ".", "_").Replace(strings.ToLower(companyID))
	return "analysis.result." + segment
}
