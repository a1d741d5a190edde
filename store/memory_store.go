package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/studyshare/models"
)

// MemoryStore keeps records in-process. It backs DB_DRIVER=memory for local runs and the service tests.
type MemoryStore struct {
	mu          sync.RWMutex
	files       map[string]models.FileRecord
	submissions map[string]models.Submission
	tombstones  map[string]models.BlobTombstone
	now         func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:       make(map[string]models.FileRecord),
		submissions: make(map[string]models.Submission),
		tombstones:  make(map[string]models.BlobTombstone),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateFile(_ context.Context, f *models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertFileLocked(f)
	return nil
}

func (m *MemoryStore) insertFileLocked(f *models.FileRecord) {
	now := m.now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	m.files[f.ID] = *f
}

func (m *MemoryStore) GetFile(_ context.Context, id string) (*models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *MemoryStore) ListFiles(_ context.Context, ownerID string) ([]models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.FileRecord, 0, len(m.files))
	for _, f := range m.files {
		if ownerID == "" || f.OwnerID == ownerID {
			items = append(items, f)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (m *MemoryStore) UpdateFile(_ context.Context, id, name string, category *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	f.OriginalName = name
	if category != nil {
		f.Category = *category
	}
	f.UpdatedAt = m.now()
	m.files[id] = f
	return nil
}

func (m *MemoryStore) DeleteFile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	m.addTombstoneLocked(f.StorageKey, ReasonFileDeleted)
	return nil
}

func (m *MemoryStore) CreateSubmission(_ context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = now
	}
	s.UpdatedAt = now
	m.submissions[s.ID] = *s
	return nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, id string) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, status models.SubmissionStatus) ([]models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.Submission, 0, len(m.submissions))
	for _, s := range m.submissions {
		if status == "" || s.Status == status {
			items = append(items, s)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SubmittedAt.After(items[j].SubmittedAt) })
	return items, nil
}

func (m *MemoryStore) RenameSubmission(_ context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return ErrNotFound
	}
	s.OriginalName = name
	s.UpdatedAt = m.now()
	m.submissions[id] = s
	return nil
}

func (m *MemoryStore) ApproveSubmission(_ context.Context, id string, file *models.FileRecord, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingLocked(id)
	if err != nil {
		return err
	}
	s.Status = models.SubmissionApproved
	s.ApprovedAt = &at
	s.ApprovedFileID = file.ID
	s.UpdatedAt = m.now()
	m.submissions[id] = s
	m.insertFileLocked(file)
	return nil
}

func (m *MemoryStore) RejectSubmission(_ context.Context, id, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingLocked(id)
	if err != nil {
		return err
	}
	s.Status = models.SubmissionRejected
	s.RejectionReason = reason
	s.RejectedAt = &at
	s.UpdatedAt = m.now()
	m.submissions[id] = s
	m.addTombstoneLocked(s.StorageKey, ReasonSubmissionRejected)
	return nil
}

func (m *MemoryStore) pendingLocked(id string) (models.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, ErrNotFound
	}
	if s.Status != models.SubmissionPending {
		return models.Submission{}, ErrNotPending
	}
	return s, nil
}

func (m *MemoryStore) AddTombstone(_ context.Context, storageKey, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addTombstoneLocked(storageKey, reason)
	return nil
}

func (m *MemoryStore) addTombstoneLocked(storageKey, reason string) {
	if _, exists := m.tombstones[storageKey]; exists {
		return
	}
	now := m.now()
	m.tombstones[storageKey] = models.BlobTombstone{StorageKey: storageKey, Reason: reason, CreatedAt: now, UpdatedAt: now}
}

func (m *MemoryStore) ListTombstones(_ context.Context, limit int) ([]models.BlobTombstone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.BlobTombstone, 0, len(m.tombstones))
	for _, t := range m.tombstones {
		items = append(items, t)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryStore) RemoveTombstone(_ context.Context, storageKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tombstones, storageKey)
	return nil
}

func (m *MemoryStore) MarkTombstoneFailed(_ context.Context, storageKey string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tombstones[storageKey]
	if !ok {
		return nil
	}
	t.Attempts++
	t.LastError = errorText(cause)
	t.UpdatedAt = m.now()
	m.tombstones[storageKey] = t
	return nil
}
