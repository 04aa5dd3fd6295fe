package turn

import (
	"context"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/relaydesk/relay/assistant"
	"go.uber.org/zap"
)

// PollBudget bounds one cooperative wait on a job. Search-augmented turns
// get a longer interval and a larger attempt cap.
type PollBudget struct {
	MaxAttempts int
	Interval    time.Duration
}

// Poller drives a job from creation to a terminal state with a
// single-threaded sleep/fetch loop. Attempts are strictly sequential; the
// only cancellation path is budget exhaustion.
type Poller struct {
	backend assistant.Client
}

func NewPoller(backend assistant.Client) *Poller {
	return &Poller{backend: backend}
}

// AwaitTerminal polls until the job reaches a terminal state or the budget
// runs out, in which case it reports the derived timeout state. A transport
// failure on any single poll is decisive: the loop stops and reports
// failed, bounding worst-case latency instead of spinning on a flaky
// collaborator.
func (p *Poller) AwaitTerminal(ctx context.Context, conversationID, jobID string, budget PollBudget) assistant.JobState {
	attempts := budget.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-time.After(budget.Interval):
		case <-ctx.Done():
			return assistant.JobTimeout
		}

		job, err := p.backend.GetJob(ctx, conversationID, jobID)
		if err != nil {
			logger.Error("Job poll failed, treating as terminal",
				zap.String("jobId", jobID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return assistant.JobFailed
		}

		if job.State.Terminal() {
			return job.State
		}
	}

	logger.Info("Job poll budget exhausted",
		zap.String("jobId", jobID),
		zap.Int("maxAttempts", attempts),
		zap.Duration("interval", budget.Interval))
	return assistant.JobTimeout
}
