package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agenttrace/agenttrace/api/internal/domain"
	"github.com/agenttrace/agenttrace/api/internal/pkg/database"
	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// MediaRepository handles media data operations in PostgreSQL
type MediaRepository struct {
	db *database.PostgresDB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *database.PostgresDB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create creates a new media row
func (r *MediaRepository) Create(ctx context.Context, media *domain.Media) error {
	query := `
		INSERT INTO media (id, project_id, sha256_hash, content_type, content_length, bucket_name, bucket_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		media.ID,
		media.ProjectID,
		media.Sha256Hash,
		media.ContentType,
		media.ContentLength,
		media.BucketName,
		media.BucketPath,
		media.CreatedAt,
		media.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}

	return nil
}

// GetByID retrieves a media row by ID, scoped to a project
func (r *MediaRepository) GetByID(ctx context.Context, projectID, id uuid.UUID) (*domain.Media, error) {
	query := `
		SELECT id, project_id, sha256_hash, content_type, content_length, bucket_name, bucket_path,
		       upload_http_status, upload_http_error, uploaded_at, created_at, updated_at
		FROM media
		WHERE id = $1 AND project_id = $2
	`

	var m domain.Media
	err := r.db.Pool.QueryRow(ctx, query, id, projectID).Scan(
		&m.ID, &m.ProjectID, &m.Sha256Hash, &m.ContentType, &m.ContentLength,
		&m.BucketName, &m.BucketPath, &m.UploadHTTPStatus, &m.UploadHTTPError,
		&m.UploadedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("media")
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return &m, nil
}

// FindDuplicate looks up an existing, successfully-uploaded media row with
// the same content-addressed identity, so repeat uploads of an already-stored
// blob can be deduplicated.
func (r *MediaRepository) FindDuplicate(ctx context.Context, projectID uuid.UUID, sha256Hash, contentType string, contentLength int64) (*domain.Media, error) {
	query := `
		SELECT id, project_id, sha256_hash, content_type, content_length, bucket_name, bucket_path,
		       upload_http_status, upload_http_error, uploaded_at, created_at, updated_at
		FROM media
		WHERE project_id = $1 AND sha256_hash = $2 AND content_type = $3 AND content_length = $4
		      AND upload_http_status BETWEEN 200 AND 299
		ORDER BY created_at DESC
		LIMIT 1
	`

	var m domain.Media
	err := r.db.Pool.QueryRow(ctx, query, projectID, sha256Hash, contentType, contentLength).Scan(
		&m.ID, &m.ProjectID, &m.Sha256Hash, &m.ContentType, &m.ContentLength,
		&m.BucketName, &m.BucketPath, &m.UploadHTTPStatus, &m.UploadHTTPError,
		&m.UploadedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find duplicate media: %w", err)
	}

	return &m, nil
}

// UpdateUploadStatus records the outcome of the upload report step
func (r *MediaRepository) UpdateUploadStatus(ctx context.Context, id uuid.UUID, status int, uploadErr *string, uploadedAt time.Time) error {
	query := `
		UPDATE media
		SET upload_http_status = $2, upload_http_error = $3, uploaded_at = $4, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status, uploadErr, uploadedAt)
	if err != nil {
		return fmt.Errorf("failed to update media upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("media")
	}

	return nil
}

// CreateAttachment links a media row to a trace or observation field
func (r *MediaRepository) CreateAttachment(ctx context.Context, attachment *domain.MediaAttachment) error {
	query := `
		INSERT INTO media_attachments (id, project_id, media_id, trace_id, observation_id, field, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id, media_id, trace_id, observation_id, field) DO NOTHING
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attachment.ID,
		attachment.ProjectID,
		attachment.MediaID,
		attachment.TraceID,
		attachment.ObservationID,
		attachment.Field,
		attachment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media attachment: %w", err)
	}

	return nil
}
