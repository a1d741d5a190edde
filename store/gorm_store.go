package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/studyshare/models"
)

// GormStore implements Store on top of a gorm connection (MySQL or Postgres).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened and migrated gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Models lists the tables this store needs migrated.
func Models() []interface{} {
	return []interface{}{&models.FileRecord{}, &models.Submission{}, &models.BlobTombstone{}}
}

func (s *GormStore) CreateFile(ctx context.Context, f *models.FileRecord) error {
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *GormStore) GetFile(ctx context.Context, id string) (*models.FileRecord, error) {
	var f models.FileRecord
	if err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (s *GormStore) ListFiles(ctx context.Context, ownerID string) ([]models.FileRecord, error) {
	items := []models.FileRecord{}
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) UpdateFile(ctx context.Context, id, name string, category *string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f models.FileRecord
		if err := tx.Select("id").First(&f, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		updates := map[string]interface{}{"original_name": name}
		if category != nil {
			updates["category"] = *category
		}
		return tx.Model(&models.FileRecord{}).Where("id = ?", id).Updates(updates).Error
	})
}

func (s *GormStore) DeleteFile(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f models.FileRecord
		if err := tx.First(&f, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&models.FileRecord{}, "id = ?", id).Error; err != nil {
			return err
		}
		return addTombstone(tx, f.StorageKey, ReasonFileDeleted)
	})
}

func (s *GormStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *GormStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *GormStore) ListSubmissions(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error) {
	items := []models.Submission{}
	q := s.db.WithContext(ctx).Order("submitted_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) RenameSubmission(ctx context.Context, id, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.Select("id").First(&sub, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		return tx.Model(&models.Submission{}).Where("id = ?", id).Update("original_name", name).Error
	})
}

func (s *GormStore) ApproveSubmission(ctx context.Context, id string, file *models.FileRecord, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update: only one reviewer can move a submission out of pending.
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", id, models.SubmissionPending).
			Updates(map[string]interface{}{
				"status":           models.SubmissionApproved,
				"approved_at":      at,
				"approved_file_id": file.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrProcessed(tx, id)
		}
		return tx.Create(file).Error
	})
}

func (s *GormStore) RejectSubmission(ctx context.Context, id, reason string, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", id, models.SubmissionPending).
			Updates(map[string]interface{}{
				"status":           models.SubmissionRejected,
				"rejection_reason": reason,
				"rejected_at":      at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrProcessed(tx, id)
		}
		var sub models.Submission
		if err := tx.Select("storage_key").First(&sub, "id = ?", id).Error; err != nil {
			return err
		}
		return addTombstone(tx, sub.StorageKey, ReasonSubmissionRejected)
	})
}

func (s *GormStore) AddTombstone(ctx context.Context, storageKey, reason string) error {
	return addTombstone(s.db.WithContext(ctx), storageKey, reason)
}

func (s *GormStore) ListTombstones(ctx context.Context, limit int) ([]models.BlobTombstone, error) {
	items := []models.BlobTombstone{}
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) RemoveTombstone(ctx context.Context, storageKey string) error {
	return s.db.WithContext(ctx).Delete(&models.BlobTombstone{}, "storage_key = ?", storageKey).Error
}

func (s *GormStore) MarkTombstoneFailed(ctx context.Context, storageKey string, cause error) error {
	return s.db.WithContext(ctx).Model(&models.BlobTombstone{}).
		Where("storage_key = ?", storageKey).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errorText(cause),
		}).Error
}

func addTombstone(tx *gorm.DB, storageKey, reason string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BlobTombstone{StorageKey: storageKey, Reason: reason}).Error
}

func missingOrProcessed(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Submission{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrNotPending
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 1024 {
		msg = msg[:1024]
	}
	return msg
}
