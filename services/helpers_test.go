package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cppla/studyshare/models"
	"github.com/cppla/studyshare/storage/storagetest"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

var errStoreDown = errors.New("store down")

var tutor = Principal{ID: "admin", Name: "Tutor", Role: utils.RoleAdmin}

// pdfBytes returns a payload the content sniffer recognizes as a PDF.
func pdfBytes(size int) []byte {
	head := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	if size < len(head) {
		size = len(head)
	}
	buf := bytes.Repeat([]byte("0"), size)
	copy(buf, head)
	return buf
}

func pdfUpload(name string, size int) Upload {
	return Upload{Filename: name, ContentType: "application/pdf", Body: bytes.NewReader(pdfBytes(size))}
}

func textUpload(name, body string) Upload {
	return Upload{Filename: name, ContentType: "text/plain", Body: strings.NewReader(body)}
}

// flakyStore fails selected writes on top of the in-memory store.
type flakyStore struct {
	*store.MemoryStore
	failCreateFile       bool
	failCreateSubmission bool
	// afterListFiles runs once, after ListFiles has read its rows and before they are returned.
	afterListFiles func()
}

func (f *flakyStore) ListFiles(ctx context.Context, ownerID string) ([]models.FileRecord, error) {
	items, err := f.MemoryStore.ListFiles(ctx, ownerID)
	if hook := f.afterListFiles; hook != nil {
		f.afterListFiles = nil
		hook()
	}
	return items, err
}

func (f *flakyStore) CreateFile(ctx context.Context, r *models.FileRecord) error {
	if f.failCreateFile {
		return errStoreDown
	}
	return f.MemoryStore.CreateFile(ctx, r)
}

func (f *flakyStore) CreateSubmission(ctx context.Context, s *models.Submission) error {
	if f.failCreateSubmission {
		return errStoreDown
	}
	return f.MemoryStore.CreateSubmission(ctx, s)
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Enabled() bool { return true }

func (m *fakeMailer) SendMail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.to)
	}
	return out
}

type fixture struct {
	store  *flakyStore
	blobs  *storagetest.Store
	cache  *utils.Cache
	mailer *fakeMailer
	files  *FileService
	subs   *SubmissionService
}

func newFixture(signedURLTTL time.Duration) *fixture {
	st := &flakyStore{MemoryStore: store.NewMemoryStore()}
	blobs := storagetest.New()
	cache := utils.NewCache(nil)
	mailer := &fakeMailer{}
	notifier := NewNotifier(mailer, "tutor@example.com")
	notifier.async = false

	f := &fixture{
		store:  st,
		blobs:  blobs,
		cache:  cache,
		mailer: mailer,
		files:  NewFileService(st, st, blobs, cache, signedURLTTL),
		subs:   NewSubmissionService(st, blobs, cache, notifier, signedURLTTL),
	}
	// strictly increasing clock so newest-first ordering is deterministic
	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	f.files.now = tick
	f.subs.now = tick
	return f
}
