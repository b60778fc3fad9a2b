package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ringlater/review-followup/internal/model"
)

// Admin-surface stores. Writes here belong to the config plane; the
// scheduling core only ever reads these tables through the policy join.

type PostgresBusinessRepo struct {
	db *sql.DB
}

func NewPostgresBusinessRepo(db *sql.DB) *PostgresBusinessRepo {
	return &PostgresBusinessRepo{db: db}
}

func (r *PostgresBusinessRepo) List(ctx context.Context) ([]model.Business, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, default_min_duration_seconds, default_send_delay_seconds,
		       timezone, send_window_start_local, send_window_end_local,
		       send_within_hours, created_at
		FROM businesses
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.DefaultMinDurationSeconds,
			&b.DefaultSendDelaySeconds,
			&b.Timezone,
			&b.SendWindowStartLocal,
			&b.SendWindowEndLocal,
			&b.SendWithinHours,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresBusinessRepo) Create(ctx context.Context, name string) (*model.Business, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO businesses (name)
		VALUES ($1)
		RETURNING id, name, default_min_duration_seconds, default_send_delay_seconds,
		          timezone, send_window_start_local, send_window_end_local,
		          send_within_hours, created_at
	`, name)

	var b model.Business
	if err := row.Scan(
		&b.ID,
		&b.Name,
		&b.DefaultMinDurationSeconds,
		&b.DefaultSendDelaySeconds,
		&b.Timezone,
		&b.SendWindowStartLocal,
		&b.SendWindowEndLocal,
		&b.SendWithinHours,
		&b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

type PostgresPhoneNumberRepo struct {
	db *sql.DB
}

func NewPostgresPhoneNumberRepo(db *sql.DB) *PostgresPhoneNumberRepo {
	return &PostgresPhoneNumberRepo{db: db}
}

func (r *PostgresPhoneNumberRepo) List(ctx context.Context) ([]model.PhoneNumber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, twilio_number, business_id, min_duration_seconds,
		       send_delay_seconds, enabled, created_at
		FROM phone_numbers
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PhoneNumber
	for rows.Next() {
		pn, err := scanPhoneNumber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pn)
	}
	return out, rows.Err()
}

func (r *PostgresPhoneNumberRepo) Create(ctx context.Context, pn model.PhoneNumber) (*model.PhoneNumber, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO phone_numbers
			(twilio_number, business_id, enabled, min_duration_seconds, send_delay_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		pn.TwilioNumber,
		pn.BusinessID,
		pn.Enabled,
		pn.MinDurationSeconds,
		pn.SendDelaySeconds,
	)

	out := pn
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func scanPhoneNumber(rows *sql.Rows) (model.PhoneNumber, error) {
	var pn model.PhoneNumber
	var minDur, delay sql.NullInt64

	if err := rows.Scan(
		&pn.ID,
		&pn.TwilioNumber,
		&pn.BusinessID,
		&minDur,
		&delay,
		&pn.Enabled,
		&pn.CreatedAt,
	); err != nil {
		return model.PhoneNumber{}, err
	}

	if minDur.Valid {
		v := int(minDur.Int64)
		pn.MinDurationSeconds = &v
	}
	if delay.Valid {
		v := int(delay.Int64)
		pn.SendDelaySeconds = &v
	}
	return pn, nil
}

type PostgresTemplateRepo struct {
	db *sql.DB
}

func NewPostgresTemplateRepo(db *sql.DB) *PostgresTemplateRepo {
	return &PostgresTemplateRepo{db: db}
}

func (r *PostgresTemplateRepo) List(ctx context.Context, businessID uuid.UUID) ([]model.MessageTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, name, body, is_default, created_at
		FROM message_templates
		WHERE business_id = $1
		ORDER BY created_at ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MessageTemplate
	for rows.Next() {
		var tpl model.MessageTemplate
		if err := rows.Scan(
			&tpl.ID,
			&tpl.BusinessID,
			&tpl.Name,
			&tpl.Body,
			&tpl.IsDefault,
			&tpl.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (r *PostgresTemplateRepo) Create(ctx context.Context, tpl model.MessageTemplate) (*model.MessageTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO message_templates (business_id, name, body, is_default)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		tpl.BusinessID,
		tpl.Name,
		tpl.Body,
		tpl.IsDefault,
	)

	out := tpl
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
