package service

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/config"
	"github.com/agenttrace/agenttrace/api/internal/domain"
	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// MediaRepository defines media persistence operations
type MediaRepository interface {
	Create(ctx context.Context, media *domain.Media) error
	GetByID(ctx context.Context, projectID, id uuid.UUID) (*domain.Media, error)
	FindDuplicate(ctx context.Context, projectID uuid.UUID, sha256Hash, contentType string, contentLength int64) (*domain.Media, error)
	UpdateUploadStatus(ctx context.Context, id uuid.UUID, status int, uploadErr *string, uploadedAt time.Time) error
	CreateAttachment(ctx context.Context, attachment *domain.MediaAttachment) error
}

// ObjectStore is the subset of the MinIO client the media service needs;
// narrowed to an interface so tests can substitute a fake.
type ObjectStore interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

var _ ObjectStore = (*minio.Client)(nil)

// MediaService implements the three-step content-addressed upload protocol:
// request an upload URL, PUT bytes to it, then report the upload outcome.
type MediaService struct {
	mediaRepo MediaRepository
	store     ObjectStore
	bucket    string
	cfg       config.MinIOConfig
	logger    *zap.Logger
}

// NewMediaService creates a new media service
func NewMediaService(mediaRepo MediaRepository, store ObjectStore, cfg config.MinIOConfig, logger *zap.Logger) *MediaService {
	return &MediaService{
		mediaRepo: mediaRepo,
		store:     store,
		bucket:    cfg.Bucket,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *MediaService) allowedContentType(contentType string) bool {
	if len(s.cfg.MediaAllowedContentTypes) == 0 {
		return true
	}
	for _, allowed := range s.cfg.MediaAllowedContentTypes {
		if allowed == contentType {
			return true
		}
	}
	return false
}

// RequestUploadURL handles step 1 of the media protocol: validation,
// content-addressed deduplication, and pre-signed URL issuance.
func (s *MediaService) RequestUploadURL(ctx context.Context, projectID uuid.UUID, input *domain.UploadURLInput) (*domain.UploadURLResult, error) {
	if !s.allowedContentType(input.ContentType) {
		return nil, apperrors.Validation("content type not allowed: " + input.ContentType)
	}
	if s.cfg.MediaMaxContentLength > 0 && input.ContentLength > s.cfg.MediaMaxContentLength {
		return nil, apperrors.Validation("content length exceeds maximum")
	}
	if input.Field == "" {
		return nil, apperrors.Validation("field is required")
	}

	existing, err := s.mediaRepo.FindDuplicate(ctx, projectID, input.Sha256Hash, input.ContentType, input.ContentLength)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.attach(ctx, projectID, existing.ID, input); err != nil {
			return nil, err
		}
		return &domain.UploadURLResult{MediaID: existing.ID, UploadURL: nil}, nil
	}

	now := time.Now()
	media := &domain.Media{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Sha256Hash:    input.Sha256Hash,
		ContentType:   input.ContentType,
		ContentLength: input.ContentLength,
		BucketName:    s.bucket,
		BucketPath:    domain.BuildBucketPath(projectID, input.Sha256Hash, input.ContentType),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.mediaRepo.Create(ctx, media); err != nil {
		return nil, err
	}
	if err := s.attach(ctx, projectID, media.ID, input); err != nil {
		return nil, err
	}

	expiry := s.cfg.MediaURLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	presigned, err := s.store.PresignedPutObject(ctx, s.bucket, media.BucketPath, expiry)
	if err != nil {
		return nil, apperrors.Internal("failed to presign upload url").WithError(err)
	}
	uploadURL := presigned.String()

	return &domain.UploadURLResult{MediaID: media.ID, UploadURL: &uploadURL}, nil
}

func (s *MediaService) attach(ctx context.Context, projectID, mediaID uuid.UUID, input *domain.UploadURLInput) error {
	return s.mediaRepo.CreateAttachment(ctx, &domain.MediaAttachment{
		ID:            uuid.New(),
		ProjectID:     projectID,
		MediaID:       mediaID,
		TraceID:       input.TraceID,
		ObservationID: input.ObservationID,
		Field:         input.Field,
		CreatedAt:     time.Now(),
	})
}

// ReportUpload handles step 3 of the media protocol: the Media row is marked
// uploaded only when the object store confirmed a 2xx PUT.
func (s *MediaService) ReportUpload(ctx context.Context, projectID, mediaID uuid.UUID, input *domain.UploadReportInput) error {
	if _, err := s.mediaRepo.GetByID(ctx, projectID, mediaID); err != nil {
		return err
	}

	uploadedAt := input.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}

	return s.mediaRepo.UpdateUploadStatus(ctx, mediaID, input.UploadHTTPStatus, input.UploadHTTPError, uploadedAt)
}

// GetDownloadURL returns a short-lived pre-signed download URL. It fails
// with a not-found error if the upload was never confirmed with a 2xx
// status, matching the protocol's refusal to serve unverified blobs.
func (s *MediaService) GetDownloadURL(ctx context.Context, projectID, mediaID uuid.UUID) (string, error) {
	media, err := s.mediaRepo.GetByID(ctx, projectID, mediaID)
	if err != nil {
		return "", err
	}
	if !media.Uploaded() {
		return "", apperrors.NotFound("media")
	}

	expiry := s.cfg.MediaURLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	presigned, err := s.store.PresignedGetObject(ctx, media.BucketName, media.BucketPath, expiry, nil)
	if err != nil {
		return "", apperrors.Internal("failed to presign download url").WithError(err)
	}

	return presigned.String(), nil
}
