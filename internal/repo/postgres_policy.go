package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ringlater/review-followup/internal/model"
)

type PostgresPolicyRepo struct {
	db *sql.DB
}

func NewPostgresPolicyRepo(db *sql.DB) *PostgresPolicyRepo {
	return &PostgresPolicyRepo{db: db}
}

// ResolveByNumber joins the phone number with its business and the
// business's default template. Number-level duration/delay overrides win
// over business defaults. When several templates are marked default, the
// oldest one is used.
func (r *PostgresPolicyRepo) ResolveByNumber(ctx context.Context, twilioNumber string) (*model.SendPolicy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT pn.id,
		       pn.enabled,
		       COALESCE(pn.min_duration_seconds, b.default_min_duration_seconds),
		       COALESCE(pn.send_delay_seconds, b.default_send_delay_seconds),
		       b.id,
		       b.timezone,
		       b.send_window_start_local,
		       b.send_window_end_local,
		       b.send_within_hours,
		       mt.body
		FROM phone_numbers pn
		JOIN businesses b ON b.id = pn.business_id
		LEFT JOIN message_templates mt
		       ON mt.business_id = b.id AND mt.is_default = true
		WHERE pn.twilio_number = $1
		ORDER BY mt.created_at ASC
		LIMIT 1
	`, twilioNumber)

	var p model.SendPolicy
	var body sql.NullString

	err := row.Scan(
		&p.PhoneNumberID,
		&p.Enabled,
		&p.MinDurationSeconds,
		&p.SendDelaySeconds,
		&p.BusinessID,
		&p.Timezone,
		&p.SendWindowStartLocal,
		&p.SendWindowEndLocal,
		&p.SendWithinHours,
		&body,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.TemplateBody = nullString(body)
	return &p, nil
}
