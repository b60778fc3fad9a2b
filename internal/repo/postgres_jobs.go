package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ringlater/review-followup/internal/model"
)

type PostgresJobRepo struct {
	db *sql.DB
}

func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

func (r *PostgresJobRepo) Insert(ctx context.Context, job model.NewJob) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_jobs
			(business_id, phone_number_id, call_sid, to_number, template_body,
			 status, scheduled_at, suppress_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (call_sid) DO NOTHING
	`,
		job.BusinessID,
		job.PhoneNumberID,
		job.CallSID,
		job.ToNumber,
		job.TemplateBody,
		string(job.Status),
		job.ScheduledAt,
		job.SuppressReason,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresJobRepo) ClaimDue(ctx context.Context, limit int) (Batch, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, business_id, phone_number_id, call_sid, to_number,
		       template_body, status, scheduled_at, created_at, updated_at
		FROM message_jobs
		WHERE status = 'QUEUED'
		  AND scheduled_at <= now()
		ORDER BY scheduled_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if len(jobs) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &pgBatch{tx: tx, jobs: jobs}, nil
}

// pgBatch keeps the claim transaction open; the row locks taken by
// ClaimDue are released by Commit or Rollback.
type pgBatch struct {
	tx   *sql.Tx
	jobs []model.Job
}

func (b *pgBatch) Jobs() []model.Job { return b.jobs }

func (b *pgBatch) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := b.tx.ExecContext(ctx, `
		UPDATE message_jobs
		SET status = 'SENT',
		    sent_at = now(),
		    last_error = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (b *pgBatch) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := b.tx.ExecContext(ctx, `
		UPDATE message_jobs
		SET status = 'FAILED',
		    last_error = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, reason)
	return err
}

func (b *pgBatch) Commit() error   { return b.tx.Commit() }
func (b *pgBatch) Rollback() error { return b.tx.Rollback() }

func (r *PostgresJobRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, phone_number_id, call_sid, to_number,
		       template_body, status, scheduled_at, sent_at, last_error,
		       suppress_reason, created_at, updated_at
		FROM message_jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		var j model.Job
		var status string
		var templateBody, lastErr, suppress sql.NullString
		var scheduledAt, sentAt sql.NullTime

		if err := rows.Scan(
			&j.ID,
			&j.BusinessID,
			&j.PhoneNumberID,
			&j.CallSID,
			&j.ToNumber,
			&templateBody,
			&status,
			&scheduledAt,
			&sentAt,
			&lastErr,
			&suppress,
			&j.CreatedAt,
			&j.UpdatedAt,
		); err != nil {
			return nil, err
		}

		j.Status = model.JobStatus(status)
		j.TemplateBody = nullString(templateBody)
		j.LastError = nullString(lastErr)
		j.SuppressReason = nullString(suppress)
		j.ScheduledAt = nullTime(scheduledAt)
		j.SentAt = nullTime(sentAt)

		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PostgresJobRepo) Requeue(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE message_jobs
		SET status = 'QUEUED',
		    scheduled_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'FAILED'
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanJob(rows *sql.Rows) (model.Job, error) {
	var j model.Job
	var status string
	var templateBody sql.NullString
	var scheduledAt sql.NullTime

	if err := rows.Scan(
		&j.ID,
		&j.BusinessID,
		&j.PhoneNumberID,
		&j.CallSID,
		&j.ToNumber,
		&templateBody,
		&status,
		&scheduledAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	); err != nil {
		return model.Job{}, err
	}

	j.Status = model.JobStatus(status)
	j.TemplateBody = nullString(templateBody)
	j.ScheduledAt = nullTime(scheduledAt)
	return j, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
