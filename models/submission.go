package models

import "time"

// SubmissionStatus is the review state of a student submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is a student-contributed file awaiting review.
// Status only moves from pending to one of the two terminal states.
type Submission struct {
	ID              string           `gorm:"primaryKey;size:36" json:"id"`
	StudentName     string           `gorm:"size:100;not null" json:"student_name"`
	StudentEmail    string           `gorm:"size:254;not null" json:"student_email"`
	OriginalName    string           `gorm:"size:255;not null" json:"original_name"`
	StorageKey      string           `gorm:"index;size:512;not null" json:"storage_key"`
	PublicURL       string           `gorm:"size:1024" json:"public_url"`
	Size            int64            `gorm:"not null" json:"size"`
	MimeType        string           `gorm:"size:128;not null" json:"mime_type"`
	Description     string           `gorm:"size:500" json:"description"`
	Category        string           `gorm:"size:50;default:'other'" json:"category"`
	Status          SubmissionStatus `gorm:"index;size:16;not null;default:'pending'" json:"status"`
	RejectionReason string           `gorm:"size:500" json:"rejection_reason,omitempty"`
	ApprovedFileID  string           `gorm:"size:36" json:"approved_file_id,omitempty"`
	SubmittedAt     time.Time        `gorm:"index" json:"submitted_at"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsTerminal reports whether the submission has already been reviewed.
func (s Submission) IsTerminal() bool {
	return s.Status == SubmissionApproved || s.Status == SubmissionRejected
}
