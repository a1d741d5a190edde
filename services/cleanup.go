package services

import (
	"context"
	"time"

	"github.com/cppla/studyshare/storage"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

const sweepBatchSize = 100

// BlobSweeper retries deletions of tombstoned blobs until they succeed.
type BlobSweeper struct {
	keep     *blobKeeper
	interval time.Duration
}

func NewBlobSweeper(tombstones store.TombstoneStore, blobs storage.ObjectStore, interval time.Duration) *BlobSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &BlobSweeper{keep: &blobKeeper{blobs: blobs, tombstones: tombstones}, interval: interval}
}

// Start launches the sweeper goroutine. It stops when ctx is cancelled.
func (s *BlobSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			// Wait first to avoid racing the first requests at startup
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep processes one batch of tombstones and returns how many blobs were deleted.
func (s *BlobSweeper) Sweep(ctx context.Context) int {
	items, err := s.keep.tombstones.ListTombstones(ctx, sweepBatchSize)
	if err != nil {
		utils.Sugar.Warnf("blob sweeper query failed: %v", err)
		return 0
	}
	deleted := 0
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		if err := s.keep.purge(ctx, it.StorageKey); err != nil {
			utils.Sugar.Warnw("blob sweeper delete failed", "key", it.StorageKey, "attempts", it.Attempts+1, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		utils.Sugar.Infof("blob sweeper removed %d blobs", deleted)
	}
	return deleted
}
