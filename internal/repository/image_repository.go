package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomlift/api/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

const imageColumns = `
	id, user_id, folder_id, status, bucket, original_key, result_key,
	watermarked_key, format, size_bytes, metadata, created_at, updated_at
`

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

func (r *ImageRepository) Create(ctx context.Context, image models.Image) error {
	const query = `
		INSERT INTO images (
			id, user_id, folder_id, status, bucket, original_key, result_key,
			watermarked_key, format, size_bytes, metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`

	metadata := image.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := r.pool.Exec(ctx, query,
		image.ID,
		image.UserID,
		image.FolderID,
		image.Status,
		image.Bucket,
		image.OriginalKey,
		image.ResultKey,
		image.WatermarkedKey,
		image.Format,
		image.SizeBytes,
		metadata,
	)
	return err
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}

// ClaimForProcessing flips an image to processing only if no other job holds
// it. The conditional update is the whole concurrency gate: two concurrent
// job starts race in the database and exactly one sees a row updated.
func (r *ImageRepository) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE images
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status IN ('original', 'enhanced', 'failed')
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkEnhanced records a successful job: status, result location and the
// metadata stamp are written in one statement.
func (r *ImageRepository) MarkEnhanced(ctx context.Context, id string, resultKey string, metadata map[string]string) error {
	const query = `
		UPDATE images
		SET status = 'enhanced',
		    result_key = $2,
		    metadata = metadata || $3::jsonb,
		    updated_at = NOW()
		WHERE id = $1
	`
	if metadata == nil {
		metadata = map[string]string{}
	}
	_, err := r.pool.Exec(ctx, query, id, resultKey, metadata)
	return err
}

func (r *ImageRepository) MarkFailed(ctx context.Context, id string) error {
	const query = `
		UPDATE images
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *ImageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanImages(rows)
}

func (r *ImageRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanImages(rows)
}

func (r *ImageRepository) List(ctx context.Context, limit, offset int) ([]models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanImages(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (models.Image, error) {
	var image models.Image
	err := row.Scan(
		&image.ID,
		&image.UserID,
		&image.FolderID,
		&image.Status,
		&image.Bucket,
		&image.OriginalKey,
		&image.ResultKey,
		&image.WatermarkedKey,
		&image.Format,
		&image.SizeBytes,
		&image.Metadata,
		&image.CreatedAt,
		&image.UpdatedAt,
	)
	return image, err
}

func scanImages(rows pgx.Rows) ([]models.Image, error) {
	var images []models.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
