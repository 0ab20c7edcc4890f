package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomlift/api/internal/models"
)

var ErrModelNotFound = errors.New("model not found")

const modelColumns = `
	id, identifier, display_name, description, kind, settings, active,
	created_at, updated_at
`

type ModelRepository struct {
	pool *pgxpool.Pool
}

func NewModelRepository(pool *pgxpool.Pool) *ModelRepository {
	return &ModelRepository{pool: pool}
}

func (r *ModelRepository) GetByID(ctx context.Context, id string) (models.AIModel, error) {
	query := `SELECT ` + modelColumns + ` FROM ai_models WHERE id = $1 AND active`
	return r.getOne(ctx, query, id)
}

func (r *ModelRepository) GetByIdentifier(ctx context.Context, identifier string) (models.AIModel, error) {
	query := `SELECT ` + modelColumns + ` FROM ai_models WHERE identifier = $1 AND active`
	return r.getOne(ctx, query, identifier)
}

func (r *ModelRepository) getOne(ctx context.Context, query string, arg any) (models.AIModel, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	model, err := scanModel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AIModel{}, ErrModelNotFound
		}
		return models.AIModel{}, err
	}
	return model, nil
}

func (r *ModelRepository) ListActive(ctx context.Context) ([]models.AIModel, error) {
	query := `SELECT ` + modelColumns + ` FROM ai_models WHERE active ORDER BY display_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AIModel
	for rows.Next() {
		model, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, model)
	}
	return out, rows.Err()
}

func scanModel(row rowScanner) (models.AIModel, error) {
	var model models.AIModel
	err := row.Scan(
		&model.ID,
		&model.Identifier,
		&model.DisplayName,
		&model.Description,
		&model.Kind,
		&model.Settings,
		&model.Active,
		&model.CreatedAt,
		&model.UpdatedAt,
	)
	return model, err
}
