package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type AttemptRepository struct {
	DB *sql.DB
}

func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Insert(ctx context.Context, attempt *entity.DeliveryAttempt) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO delivery_attempts (id, lead_id, attempt_number, scheduled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id, attempt_number) DO NOTHING
	`,
		attempt.ID,
		attempt.LeadID,
		attempt.AttemptNumber,
		attempt.ScheduledAt,
	)
	if err != nil {
		return entity.NewStorageError("insert attempt", err)
	}
	return nil
}

// Claim marca a tentativa como disparada. O WHERE executed_at IS NULL
// garante que só uma invocação executa cada tentativa, mesmo com o
// poller e o consumer da fila concorrendo.
func (r *AttemptRepository) Claim(ctx context.Context, attemptID string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE delivery_attempts SET executed_at = $1
		WHERE id = $2 AND executed_at IS NULL
	`, now, attemptID)
	if err != nil {
		return false, entity.NewStorageError("claim attempt", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, entity.NewStorageError("claim attempt", err)
	}
	return n == 1, nil
}

func (r *AttemptRepository) RecordOutcome(ctx context.Context, attemptID, outcome, errMsg string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE delivery_attempts SET outcome = $1, error = $2 WHERE id = $3
	`, outcome, nullString(errMsg), attemptID)
	if err != nil {
		return entity.NewStorageError("record outcome", err)
	}
	return nil
}

func (r *AttemptRepository) Due(ctx context.Context, now time.Time, limit int) ([]entity.DeliveryAttempt, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lead_id, attempt_number, scheduled_at
		FROM delivery_attempts
		WHERE executed_at IS NULL AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, entity.NewStorageError("due attempts", err)
	}
	defer rows.Close()

	var attempts []entity.DeliveryAttempt
	for rows.Next() {
		var a entity.DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.LeadID, &a.AttemptNumber, &a.ScheduledAt); err != nil {
			return nil, entity.NewStorageError("due attempts", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, entity.NewStorageError("due attempts", err)
	}
	return attempts, nil
}

func (r *AttemptRepository) Compact(ctx context.Context, leadID string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM delivery_attempts WHERE lead_id = $1`, leadID)
	if err != nil {
		return entity.NewStorageError("compact attempts", err)
	}
	return nil
}
