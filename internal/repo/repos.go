package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/ringlater/review-followup/internal/model"
)

// PolicyRepository resolves the effective send policy for a destination
// number. A nil policy with nil error means no phone number matched.
type PolicyRepository interface {
	ResolveByNumber(ctx context.Context, twilioNumber string) (*model.SendPolicy, error)
}

// CallEventRepository persists raw provider callbacks, keyed by call SID.
type CallEventRepository interface {
	Upsert(ctx context.Context, ev model.CallEvent) error
}

// Batch is a set of claimed jobs whose row locks are held until Commit.
// MarkSent and MarkFailed apply inside the claim transaction, so a
// transport failure on one job never rolls back another job's outcome.
type Batch interface {
	Jobs() []model.Job
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Commit() error
	Rollback() error
}

type JobRepository interface {
	// Insert creates the job unless one already exists for the same call
	// SID; the duplicate case reports inserted=false with no error.
	Insert(ctx context.Context, job model.NewJob) (inserted bool, err error)

	// ClaimDue locks up to limit due QUEUED jobs, oldest scheduled first,
	// skipping rows locked by concurrent claimants. A nil Batch means
	// nothing was due.
	ClaimDue(ctx context.Context, limit int) (Batch, error)

	ListRecent(ctx context.Context, limit, offset int) ([]model.Job, error)

	// Requeue moves a FAILED job back to QUEUED with scheduled_at = now.
	Requeue(ctx context.Context, id uuid.UUID) (bool, error)
}

type BusinessRepository interface {
	List(ctx context.Context) ([]model.Business, error)
	Create(ctx context.Context, name string) (*model.Business, error)
}

type PhoneNumberRepository interface {
	List(ctx context.Context) ([]model.PhoneNumber, error)
	Create(ctx context.Context, pn model.PhoneNumber) (*model.PhoneNumber, error)
}

type TemplateRepository interface {
	List(ctx context.Context, businessID uuid.UUID) ([]model.MessageTemplate, error)
	Create(ctx context.Context, tpl model.MessageTemplate) (*model.MessageTemplate, error)
}
