package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ringlater/review-followup/internal/metrics"
	"github.com/ringlater/review-followup/internal/model"
	"github.com/ringlater/review-followup/internal/repo"
	"github.com/ringlater/review-followup/internal/schedule"
)

// Admission decides, per completed call, whether a follow-up job is
// enqueued, suppressed, or not created at all. It is safe to invoke more
// than once for the same call SID: the job insert is conflict-safe.
type Admission struct {
	policies repo.PolicyRepository
	jobs     repo.JobRepository

	now func() time.Time
}

func NewAdmission(policies repo.PolicyRepository, jobs repo.JobRepository) *Admission {
	return &Admission{
		policies: policies,
		jobs:     jobs,
		now:      time.Now,
	}
}

// Admit applies the send policy for the call's destination number. A nil
// error covers every non-send outcome (no match, disabled, too short,
// suppressed, duplicate); only storage failures surface as errors.
func (a *Admission) Admit(ctx context.Context, ev model.CallEvent) error {
	if ev.DurationSeconds == nil {
		return nil
	}

	policy, err := a.policies.ResolveByNumber(ctx, ev.ToNumber)
	if err != nil {
		return fmt.Errorf("resolve policy for %s: %w", ev.ToNumber, err)
	}
	if policy == nil {
		return nil
	}
	if !policy.Enabled {
		return nil
	}
	if *ev.DurationSeconds < policy.MinDurationSeconds {
		return nil
	}

	at, ok, err := schedule.ComputeScheduledAt(schedule.Window{
		Timezone:   policy.Timezone,
		StartLocal: policy.SendWindowStartLocal,
		EndLocal:   policy.SendWindowEndLocal,
		Delay:      time.Duration(policy.SendDelaySeconds) * time.Second,
		Horizon:    time.Duration(policy.SendWithinHours) * time.Hour,
	}, a.now())
	if err != nil {
		// A broken window config is scoped to this call; other calls and
		// the queue keep working.
		slog.Warn("send window misconfigured, skipping call",
			"call_sid", ev.CallSID,
			"business_id", policy.BusinessID,
			"err", err,
		)
		return nil
	}

	job := model.NewJob{
		BusinessID:    policy.BusinessID,
		PhoneNumberID: policy.PhoneNumberID,
		CallSID:       ev.CallSID,
		// The follow-up goes back to the caller.
		ToNumber:     ev.FromNumber,
		TemplateBody: policy.TemplateBody,
	}

	if ok {
		job.Status = model.JobQueued
		job.ScheduledAt = &at
	} else {
		reason := model.SuppressReasonNoValidSendTime
		job.Status = model.JobSuppressed
		job.SuppressReason = &reason
	}

	inserted, err := a.jobs.Insert(ctx, job)
	if err != nil {
		return fmt.Errorf("insert job for call %s: %w", ev.CallSID, err)
	}
	if !inserted {
		slog.Debug("duplicate call admission ignored", "call_sid", ev.CallSID)
		return nil
	}

	if job.Status == model.JobQueued {
		metrics.JobsEnqueued.Inc()
		slog.Info("follow-up enqueued",
			"call_sid", ev.CallSID,
			"to", job.ToNumber,
			"scheduled_at", at,
		)
	} else {
		metrics.JobsSuppressed.Inc()
		slog.Info("follow-up suppressed",
			"call_sid", ev.CallSID,
			"reason", model.SuppressReasonNoValidSendTime,
		)
	}
	return nil
}
