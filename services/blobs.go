package services

import (
	"bytes"
	"context"
	"time"

	"github.com/cppla/studyshare/storage"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

const blobCallTimeout = 30 * time.Second

// blobKeeper keeps the object store consistent with the record store. Every blob that must go away is
// either deleted right away or left behind as a tombstone for the sweeper.
type blobKeeper struct {
	blobs        storage.ObjectStore
	tombstones   store.TombstoneStore
	signedURLTTL time.Duration
}

func (b *blobKeeper) put(ctx context.Context, prefix string, v *validatedUpload, now time.Time) (string, error) {
	key := storage.NewKey(prefix, v.Ext, now)
	if err := b.blobs.Put(ctx, key, bytes.NewReader(v.Data), v.Size(), v.MimeType); err != nil {
		return "", upstream("put blob", err)
	}
	return key, nil
}

// discard removes a blob whose record was never written. A failed delete becomes a tombstone.
func (b *blobKeeper) discard(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCallTimeout)
	defer cancel()
	err := b.blobs.Delete(ctx, key)
	if err == nil {
		return
	}
	utils.Sugar.Warnw("orphaned blob left after failed record write", "key", key, "error", err)
	if terr := b.tombstones.AddTombstone(ctx, key, store.ReasonOrphanedUpload); terr != nil {
		utils.Sugar.Errorw("tombstone for orphaned blob not stored", "key", key, "error", terr)
	}
}

// purge deletes a blob that is already tombstoned and clears the tombstone on success.
func (b *blobKeeper) purge(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCallTimeout)
	defer cancel()
	if err := b.blobs.Delete(ctx, key); err != nil {
		blobCleanupTotal.WithLabelValues("failed").Inc()
		if merr := b.tombstones.MarkTombstoneFailed(ctx, key, err); merr != nil {
			utils.Sugar.Warnw("tombstone update failed", "key", key, "error", merr)
		}
		return err
	}
	blobCleanupTotal.WithLabelValues("deleted").Inc()
	if err := b.tombstones.RemoveTombstone(ctx, key); err != nil {
		utils.Sugar.Warnw("tombstone not cleared after blob delete", "key", key, "error", err)
	}
	return nil
}

// downloadURL prefers the stable public address when downloads are not meant to expire.
func (b *blobKeeper) downloadURL(ctx context.Context, key, name string) (string, error) {
	if b.signedURLTTL <= 0 {
		if u := b.blobs.PublicURL(key); u != "" {
			return u, nil
		}
	}
	ttl := b.signedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	u, err := b.blobs.PresignGet(ctx, key, ttl, name)
	if err != nil {
		return "", upstream("presign download", err)
	}
	return u, nil
}
