package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomlift/api/internal/models"
)

var ErrLogNotFound = errors.New("enhancement log not found")

const logColumns = `
	id, image_id, user_id, model_id, kind, status, prompt, params,
	cost_credits, result_key, error_text, started_at, finished_at,
	duration_ms, created_at, updated_at
`

type LogRepository struct {
	pool *pgxpool.Pool
}

func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

func (r *LogRepository) Create(ctx context.Context, entry models.EnhancementLog) error {
	const query = `
		INSERT INTO enhancement_logs (
			id, image_id, user_id, model_id, kind, status, prompt, params,
			cost_credits, started_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()
		)
	`

	params := entry.Params
	if params == nil {
		params = map[string]string{}
	}

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.ImageID,
		entry.UserID,
		entry.ModelID,
		entry.Kind,
		entry.Status,
		entry.Prompt,
		params,
		entry.CostCredits,
		entry.StartedAt,
	)
	return err
}

// Complete closes a log as successful. It only fires while the log is still
// processing, so a terminal log can never be reopened.
func (r *LogRepository) Complete(ctx context.Context, id string, resultKey string, duration time.Duration) (bool, error) {
	const query = `
		UPDATE enhancement_logs
		SET status = 'completed',
		    result_key = $2,
		    duration_ms = $3,
		    finished_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	tag, err := r.pool.Exec(ctx, query, id, resultKey, duration.Milliseconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Fail closes a log as failed and reports whether this call performed the
// transition. Callers use the return value as the at-most-once refund guard.
func (r *LogRepository) Fail(ctx context.Context, id string, errorText string) (bool, error) {
	const query = `
		UPDATE enhancement_logs
		SET status = 'failed',
		    error_text = $2,
		    finished_at = NOW(),
		    duration_ms = EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
	`
	tag, err := r.pool.Exec(ctx, query, id, errorText)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LogRepository) GetByID(ctx context.Context, id string) (models.EnhancementLog, error) {
	query := `SELECT ` + logColumns + ` FROM enhancement_logs WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	entry, err := scanLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.EnhancementLog{}, ErrLogNotFound
		}
		return models.EnhancementLog{}, err
	}
	return entry, nil
}

func (r *LogRepository) ListByImage(ctx context.Context, imageID string, limit int) ([]models.EnhancementLog, error) {
	query := `
		SELECT ` + logColumns + `
		FROM enhancement_logs
		WHERE image_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, imageID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogs(rows)
}

// ListStaleProcessing returns logs that have sat in processing since before
// the cutoff. The reaper uses it to sweep up jobs orphaned by a crash.
func (r *LogRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.EnhancementLog, error) {
	query := `
		SELECT ` + logColumns + `
		FROM enhancement_logs
		WHERE status = 'processing' AND started_at < $1
		ORDER BY started_at
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogs(rows)
}

func scanLog(row rowScanner) (models.EnhancementLog, error) {
	var entry models.EnhancementLog
	err := row.Scan(
		&entry.ID,
		&entry.ImageID,
		&entry.UserID,
		&entry.ModelID,
		&entry.Kind,
		&entry.Status,
		&entry.Prompt,
		&entry.Params,
		&entry.CostCredits,
		&entry.ResultKey,
		&entry.ErrorText,
		&entry.StartedAt,
		&entry.FinishedAt,
		&entry.DurationMS,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	return entry, err
}

func scanLogs(rows pgx.Rows) ([]models.EnhancementLog, error) {
	var out []models.EnhancementLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
