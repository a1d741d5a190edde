package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/studyshare/models"
	"github.com/cppla/studyshare/storage"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

const (
	publicFilesCacheKey = "cache:files:public"
	publicFilesGenKey   = "cache:files:public:gen"
	publicFilesCacheTTL = time.Hour
)

// publicFilesKey names the cached listing for one generation. A mutation bumps the generation,
// so a listing read before the mutation and stored after it lands under a key nobody reads.
func publicFilesKey(gen int64) string {
	return fmt.Sprintf("%s:%d", publicFilesCacheKey, gen)
}

// invalidatePublicFiles retires the cached public listing.
func invalidatePublicFiles(ctx context.Context, cache *utils.Cache) {
	if cache == nil {
		return
	}
	if gen, ok := cache.Bump(ctx, publicFilesGenKey); ok {
		cache.Invalidate(ctx, publicFilesKey(gen-1))
	}
}

// FileService manages published study materials.
type FileService struct {
	files store.FileStore
	keep  *blobKeeper
	cache *utils.Cache
	now   func() time.Time
}

func NewFileService(files store.FileStore, tombstones store.TombstoneStore, blobs storage.ObjectStore, cache *utils.Cache, signedURLTTL time.Duration) *FileService {
	return &FileService{
		files: files,
		keep:  &blobKeeper{blobs: blobs, tombstones: tombstones, signedURLTTL: signedURLTTL},
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Upload validates and stores a tutor upload and publishes it.
func (s *FileService) Upload(ctx context.Context, p Principal, up Upload, category string) (*models.FileRecord, error) {
	cat, err := cleanText("category", category, MaxFileCategory)
	if err != nil {
		return nil, err
	}
	v, err := validateUpload(up)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key, err := s.keep.put(ctx, storage.PrefixUploads, v, now)
	if err != nil {
		return nil, err
	}
	rec := &models.FileRecord{
		ID:           uuid.NewString(),
		OwnerID:      p.ID,
		StorageKey:   key,
		OriginalName: v.Name,
		PublicURL:    s.keep.blobs.PublicURL(key),
		Size:         v.Size(),
		MimeType:     v.MimeType,
		Category:     cat,
		CreatedAt:    now,
	}
	if err := s.files.CreateFile(ctx, rec); err != nil {
		s.keep.discard(ctx, key)
		return nil, storeErr("create file", err)
	}
	s.invalidate(ctx)
	utils.Sugar.Infow("file uploaded", "id", rec.ID, "owner", p.ID, "size", rec.Size)
	return rec, nil
}

// ListByOwner returns the caller's files, newest first.
func (s *FileService) ListByOwner(ctx context.Context, p Principal) ([]models.FileRecord, error) {
	items, err := s.files.ListFiles(ctx, p.ID)
	if err != nil {
		return nil, storeErr("list files", err)
	}
	return items, nil
}

// ListPublic returns every file, newest first. The result is cached until the next mutation.
func (s *FileService) ListPublic(ctx context.Context) ([]models.FileRecord, error) {
	var (
		gen      int64
		useCache bool
	)
	if s.cache != nil {
		gen, useCache = s.cache.Generation(ctx, publicFilesGenKey)
	}
	var cached []models.FileRecord
	if useCache && s.cache.GetJSON(ctx, publicFilesKey(gen), &cached) {
		return cached, nil
	}
	items, err := s.files.ListFiles(ctx, "")
	if err != nil {
		return nil, storeErr("list files", err)
	}
	if useCache {
		s.cache.SetJSON(ctx, publicFilesKey(gen), items, publicFilesCacheTTL)
	}
	return items, nil
}

// DownloadTarget returns the URL the client should be redirected to.
func (s *FileService) DownloadTarget(ctx context.Context, id string) (string, error) {
	rec, err := s.files.GetFile(ctx, id)
	if err != nil {
		return "", storeErr("get file", err)
	}
	return s.keep.downloadURL(ctx, rec.StorageKey, rec.OriginalName)
}

// Delete removes a file the caller owns. The record and a blob tombstone are written together,
// so a failed blob delete is retried by the sweeper instead of leaking.
func (s *FileService) Delete(ctx context.Context, p Principal, id string) error {
	rec, err := s.owned(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.files.DeleteFile(ctx, rec.ID); err != nil {
		return storeErr("delete file", err)
	}
	s.invalidate(ctx)
	if err := s.keep.purge(ctx, rec.StorageKey); err != nil {
		utils.Sugar.Warnw("blob delete deferred to sweeper", "key", rec.StorageKey, "error", err)
	}
	return nil
}

// Rename changes the display name and, when category is not nil, the category of a file the caller owns.
func (s *FileService) Rename(ctx context.Context, p Principal, id, newName string, category *string) (*models.FileRecord, error) {
	name, err := ValidateFilename(newName)
	if err != nil {
		return nil, err
	}
	var cat *string
	if category != nil {
		c, err := cleanText("category", *category, MaxFileCategory)
		if err != nil {
			return nil, err
		}
		cat = &c
	}
	rec, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateFile(ctx, rec.ID, name, cat); err != nil {
		return nil, storeErr("rename file", err)
	}
	s.invalidate(ctx)
	rec.OriginalName = name
	if cat != nil {
		rec.Category = *cat
	}
	return rec, nil
}

func (s *FileService) owned(ctx context.Context, p Principal, id string) (*models.FileRecord, error) {
	rec, err := s.files.GetFile(ctx, id)
	if err != nil {
		return nil, storeErr("get file", err)
	}
	if rec.OwnerID != p.ID {
		return nil, ErrForbidden
	}
	return rec, nil
}

func (s *FileService) invalidate(ctx context.Context) {
	invalidatePublicFiles(ctx, s.cache)
}
