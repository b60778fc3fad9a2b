package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ringlater/review-followup/internal/metrics"
	"github.com/ringlater/review-followup/internal/repo"
)

// DefaultBody is sent when a job carries no template snapshot.
const DefaultBody = "Thanks for calling! Would you leave us a quick review?"

// Sender delivers one message; an error is a delivery failure.
type Sender interface {
	Send(ctx context.Context, toNumber, message string) error
}

// SentRecorder receives best-effort notifications of delivered jobs.
type SentRecorder interface {
	StoreSent(ctx context.Context, callSID string, sentAt time.Time) error
}

// Processor drains due jobs. Each ProcessOnce claims one locked batch,
// attempts delivery per job and writes the SENT/FAILED outcome inside the
// claim transaction; the final commit releases the row locks. A transport
// failure on one job never blocks the rest of the batch, while a storage
// failure aborts the whole cycle.
type Processor struct {
	jobs      repo.JobRepository
	sender    Sender
	batchSize int

	recorder SentRecorder // optional

	now func() time.Time
}

func NewProcessor(jobs repo.JobRepository, sender Sender, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Processor{
		jobs:      jobs,
		sender:    sender,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// WithSentRecorder attaches a delivery-confirmation sink, typically the
// Redis cache. Recorder errors are logged and never fail a job.
func (p *Processor) WithSentRecorder(r SentRecorder) *Processor {
	p.recorder = r
	return p
}

// ProcessOnce runs one claim cycle and reports how many jobs it handled.
// Zero with a nil error means nothing was due.
func (p *Processor) ProcessOnce(ctx context.Context) (int, error) {
	metrics.ClaimCycles.Inc()

	batch, err := p.jobs.ClaimDue(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if batch == nil {
		return 0, nil
	}
	defer func() { _ = batch.Rollback() }()

	jobs := batch.Jobs()
	for _, job := range jobs {
		body := DefaultBody
		if job.TemplateBody != nil && *job.TemplateBody != "" {
			body = *job.TemplateBody
		}

		start := p.now()
		sendErr := p.sender.Send(ctx, job.ToNumber, body)
		metrics.SendDuration.Observe(time.Since(start).Seconds())

		if sendErr != nil {
			metrics.JobsFailed.Inc()
			slog.Warn("delivery failed",
				"job_id", job.ID,
				"call_sid", job.CallSID,
				"err", sendErr,
			)
			if err := batch.MarkFailed(ctx, job.ID, sendErr.Error()); err != nil {
				return 0, err
			}
			continue
		}

		if err := batch.MarkSent(ctx, job.ID); err != nil {
			return 0, err
		}
		metrics.JobsSent.Inc()
		slog.Info("follow-up sent", "job_id", job.ID, "call_sid", job.CallSID, "to", job.ToNumber)

		if p.recorder != nil {
			if err := p.recorder.StoreSent(ctx, job.CallSID, p.now()); err != nil {
				slog.Warn("sent-record cache write failed", "call_sid", job.CallSID, "err", err)
			}
		}
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	return len(jobs), nil
}
