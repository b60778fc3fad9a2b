package repo

import (
	"context"
	"database/sql"

	"github.com/ringlater/review-followup/internal/model"
)

type PostgresCallEventRepo struct {
	db *sql.DB
}

func NewPostgresCallEventRepo(db *sql.DB) *PostgresCallEventRepo {
	return &PostgresCallEventRepo{db: db}
}

// Upsert records the latest provider callback for a call. The duration is
// sticky: a later callback without a duration never erases one already
// recorded.
func (r *PostgresCallEventRepo) Upsert(ctx context.Context, ev model.CallEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_events
			(call_sid, from_number, to_number, call_status,
			 call_duration_seconds, last_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (call_sid) DO UPDATE SET
			from_number = EXCLUDED.from_number,
			to_number = EXCLUDED.to_number,
			call_status = EXCLUDED.call_status,
			call_duration_seconds = COALESCE(EXCLUDED.call_duration_seconds,
			                                 call_events.call_duration_seconds),
			last_payload = EXCLUDED.last_payload,
			updated_at = now()
	`,
		ev.CallSID,
		ev.FromNumber,
		ev.ToNumber,
		ev.CallStatus,
		ev.DurationSeconds,
		ev.RawPayload,
	)
	return err
}
