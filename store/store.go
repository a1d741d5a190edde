package store

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/studyshare/models"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrNotPending is returned when a review transition targets a submission that already left pending.
	ErrNotPending = errors.New("submission is not pending")
)

// FileStore persists published file records.
type FileStore interface {
	CreateFile(ctx context.Context, f *models.FileRecord) error
	GetFile(ctx context.Context, id string) (*models.FileRecord, error)
	// ListFiles returns records newest first; an empty ownerID lists every record.
	ListFiles(ctx context.Context, ownerID string) ([]models.FileRecord, error)
	// UpdateFile sets the display name and, when category is non-nil, the category.
	UpdateFile(ctx context.Context, id, name string, category *string) error
	// DeleteFile removes the record and tombstones its blob in one transaction.
	DeleteFile(ctx context.Context, id string) error
}

// SubmissionStore persists student submissions and their review transitions.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, s *models.Submission) error
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	// ListSubmissions returns submissions newest first; an empty status lists every submission.
	ListSubmissions(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error)
	RenameSubmission(ctx context.Context, id, name string) error
	// ApproveSubmission moves a pending submission to approved and creates file in the same transaction.
	ApproveSubmission(ctx context.Context, id string, file *models.FileRecord, at time.Time) error
	// RejectSubmission moves a pending submission to rejected and tombstones its blob in the same transaction.
	RejectSubmission(ctx context.Context, id, reason string, at time.Time) error
}

// TombstoneStore tracks blobs waiting for deletion.
type TombstoneStore interface {
	AddTombstone(ctx context.Context, storageKey, reason string) error
	ListTombstones(ctx context.Context, limit int) ([]models.BlobTombstone, error)
	RemoveTombstone(ctx context.Context, storageKey string) error
	MarkTombstoneFailed(ctx context.Context, storageKey string, cause error) error
}

// Store is the full record store used by the services.
type Store interface {
	FileStore
	SubmissionStore
	TombstoneStore
}

// Tombstone reasons.
const (
	ReasonFileDeleted        = "file_deleted"
	ReasonSubmissionRejected = "submission_rejected"
	ReasonOrphanedUpload     = "orphaned_upload"
)
