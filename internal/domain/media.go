package domain

import (
	"time"

	"github.com/google/uuid"
)

// Media represents a content-addressed binary asset referenced from a trace
// or observation field (e.g. an image attached to a generation's input).
type Media struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"projectId"`

	Sha256Hash    string `json:"sha256Hash"`
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`

	BucketName string `json:"bucketName"`
	BucketPath string `json:"bucketPath"`

	UploadHTTPStatus *int    `json:"uploadHttpStatus,omitempty"`
	UploadHTTPError  *string `json:"uploadHttpError,omitempty"`
	UploadedAt       *time.Time `json:"uploadedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Uploaded reports whether the object store confirmed a successful PUT.
func (m *Media) Uploaded() bool {
	return m.UploadHTTPStatus != nil && *m.UploadHTTPStatus >= 200 && *m.UploadHTTPStatus < 300
}

// MediaAttachment links a Media row to a field on a trace or observation.
type MediaAttachment struct {
	ID              uuid.UUID  `json:"id"`
	ProjectID       uuid.UUID  `json:"projectId"`
	MediaID         uuid.UUID  `json:"mediaId"`
	TraceID         string     `json:"traceId"`
	ObservationID   *string    `json:"observationId,omitempty"`
	Field           string     `json:"field"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// UploadURLInput is the request body for the "request upload URL" step.
type UploadURLInput struct {
	ContentType   string `json:"contentType" validate:"required"`
	ContentLength int64  `json:"contentLength" validate:"required,gt=0"`
	Sha256Hash    string `json:"sha256Hash" validate:"required"`
	TraceID       string `json:"traceId" validate:"required"`
	ObservationID *string `json:"observationId,omitempty"`
	Field         string `json:"field" validate:"required"`
}

// UploadURLResult is the response of the "request upload URL" step. UploadURL
// is nil when the blob is already stored (content-addressed dedup) and the
// attachment was created directly against the existing Media row.
type UploadURLResult struct {
	MediaID   uuid.UUID `json:"mediaId"`
	UploadURL *string   `json:"uploadUrl"`
}

// UploadReportInput is the request body for the "report" step.
type UploadReportInput struct {
	UploadedAt       time.Time `json:"uploadedAt"`
	UploadHTTPStatus int       `json:"uploadHttpStatus"`
	UploadHTTPError  *string   `json:"uploadHttpError,omitempty"`
}

// bucketPathSegment maps a content type to the directory segment used in the
// content-addressed object path, e.g. "image/png" -> "image".
func bucketPathSegment(contentType string) string {
	for i, c := range contentType {
		if c == '/' {
			return contentType[:i]
		}
	}
	return contentType
}

// BuildBucketPath computes the content-addressed object path
// {projectId}/{sha256Hash}/{contentType-segment}.
func BuildBucketPath(projectID uuid.UUID, sha256Hash, contentType string) string {
	return projectID.String() + "/" + sha256Hash + "/" + bucketPathSegment(contentType)
}
