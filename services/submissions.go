package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/studyshare/models"
	"github.com/cppla/studyshare/storage"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

// SubmissionMeta carries the form fields sent with a student submission.
type SubmissionMeta struct {
	StudentName  string
	StudentEmail string
	Description  string
	Category     string
}

// SubmissionStore is the record access the workflow needs.
type SubmissionStore interface {
	store.SubmissionStore
	store.TombstoneStore
}

// SubmissionService runs the pending -> approved | rejected review workflow.
type SubmissionService struct {
	subs   SubmissionStore
	keep   *blobKeeper
	cache  *utils.Cache
	notify *Notifier
	now    func() time.Time
}

func NewSubmissionService(subs SubmissionStore, blobs storage.ObjectStore, cache *utils.Cache, notify *Notifier, signedURLTTL time.Duration) *SubmissionService {
	return &SubmissionService{
		subs:   subs,
		keep:   &blobKeeper{blobs: blobs, tombstones: subs, signedURLTTL: signedURLTTL},
		cache:  cache,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates a student upload and stores it as pending.
func (s *SubmissionService) Submit(ctx context.Context, meta SubmissionMeta, up Upload) (*models.Submission, error) {
	name, email, err := validateStudent(meta.StudentName, meta.StudentEmail)
	if err != nil {
		return nil, err
	}
	desc, err := cleanText("description", meta.Description, MaxDescriptionLength)
	if err != nil {
		return nil, err
	}
	cat, err := cleanText("category", meta.Category, MaxSubmissionCategory)
	if err != nil {
		return nil, err
	}
	if cat == "" {
		cat = DefaultSubmissionCategory
	}
	v, err := validateUpload(up)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key, err := s.keep.put(ctx, storage.PrefixSubmissions, v, now)
	if err != nil {
		return nil, err
	}
	sub := &models.Submission{
		ID:           uuid.NewString(),
		StudentName:  name,
		StudentEmail: email,
		OriginalName: v.Name,
		StorageKey:   key,
		PublicURL:    s.keep.blobs.PublicURL(key),
		Size:         v.Size(),
		MimeType:     v.MimeType,
		Description:  desc,
		Category:     cat,
		Status:       models.SubmissionPending,
		SubmittedAt:  now,
	}
	if err := s.subs.CreateSubmission(ctx, sub); err != nil {
		s.keep.discard(ctx, key)
		return nil, storeErr("create submission", err)
	}
	submissionsTotal.WithLabelValues(outcomeSubmitted).Inc()
	utils.Sugar.Infow("submission received", "id", sub.ID, "size", sub.Size)
	s.notify.submitted(*sub)
	return sub, nil
}

// ListPending returns pending submissions, newest first.
func (s *SubmissionService) ListPending(ctx context.Context) ([]models.Submission, error) {
	items, err := s.subs.ListSubmissions(ctx, models.SubmissionPending)
	if err != nil {
		return nil, storeErr("list submissions", err)
	}
	return items, nil
}

// ListAll returns every submission, newest first.
func (s *SubmissionService) ListAll(ctx context.Context) ([]models.Submission, error) {
	items, err := s.subs.ListSubmissions(ctx, "")
	if err != nil {
		return nil, storeErr("list submissions", err)
	}
	return items, nil
}

// DownloadTarget returns a URL for the tutor to review the submitted file.
func (s *SubmissionService) DownloadTarget(ctx context.Context, id string) (string, error) {
	sub, err := s.subs.GetSubmission(ctx, id)
	if err != nil {
		return "", storeErr("get submission", err)
	}
	if sub.Status == models.SubmissionRejected {
		return "", ErrNotFound
	}
	return s.keep.downloadURL(ctx, sub.StorageKey, sub.OriginalName)
}

// Approve publishes a pending submission as a file owned by the acting principal.
// The status change and the new file record commit together; concurrent reviews have one winner.
func (s *SubmissionService) Approve(ctx context.Context, p Principal, id string) (*models.FileRecord, error) {
	sub, err := s.subs.GetSubmission(ctx, id)
	if err != nil {
		return nil, storeErr("get submission", err)
	}
	if sub.Status != models.SubmissionPending {
		return nil, ErrAlreadyProcessed
	}

	now := s.now()
	rec := &models.FileRecord{
		ID:           uuid.NewString(),
		OwnerID:      p.ID,
		StorageKey:   sub.StorageKey,
		OriginalName: sub.OriginalName,
		PublicURL:    sub.PublicURL,
		Size:         sub.Size,
		MimeType:     sub.MimeType,
		Category:     sub.Category,
		CreatedAt:    now,
	}
	if err := s.subs.ApproveSubmission(ctx, id, rec, now); err != nil {
		return nil, storeErr("approve submission", err)
	}
	invalidatePublicFiles(ctx, s.cache)
	submissionsTotal.WithLabelValues(outcomeApproved).Inc()
	utils.Sugar.Infow("submission approved", "id", id, "file_id", rec.ID, "by", p.ID)

	sub.Status = models.SubmissionApproved
	sub.ApprovedAt = &now
	sub.ApprovedFileID = rec.ID
	s.notify.approved(*sub)
	return rec, nil
}

// Reject closes a pending submission and removes its blob.
func (s *SubmissionService) Reject(ctx context.Context, id, reason string) (*models.Submission, error) {
	why, err := cleanText("reason", reason, MaxReasonLength)
	if err != nil {
		return nil, err
	}
	if why == "" {
		why = DefaultRejectionReason
	}
	sub, err := s.subs.GetSubmission(ctx, id)
	if err != nil {
		return nil, storeErr("get submission", err)
	}
	if sub.Status != models.SubmissionPending {
		return nil, ErrAlreadyProcessed
	}

	now := s.now()
	if err := s.subs.RejectSubmission(ctx, id, why, now); err != nil {
		return nil, storeErr("reject submission", err)
	}
	submissionsTotal.WithLabelValues(outcomeRejected).Inc()
	if err := s.keep.purge(ctx, sub.StorageKey); err != nil {
		utils.Sugar.Warnw("blob delete deferred to sweeper", "key", sub.StorageKey, "error", err)
	}
	utils.Sugar.Infow("submission rejected", "id", id)

	sub.Status = models.SubmissionRejected
	sub.RejectionReason = why
	sub.RejectedAt = &now
	s.notify.rejected(*sub)
	return sub, nil
}

// Rename changes the display name of a submission in any state.
func (s *SubmissionService) Rename(ctx context.Context, id, newName string) (*models.Submission, error) {
	name, err := ValidateFilename(newName)
	if err != nil {
		return nil, err
	}
	if err := s.subs.RenameSubmission(ctx, id, name); err != nil {
		return nil, storeErr("rename submission", err)
	}
	sub, err := s.subs.GetSubmission(ctx, id)
	if err != nil {
		return nil, storeErr("get submission", err)
	}
	return sub, nil
}
