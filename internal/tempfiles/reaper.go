package tempfiles

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/storage"
)

const syncChunk = 500

// Sweep purges every record that has expired by now and returns how many
// this call removed. Records purged concurrently by a download are skipped.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	reclaimed := 0

	for {
		batch, err := s.repo.ListExpired(ctx, now, s.opts.BatchSize)
		if err != nil {
			return reclaimed, fmt.Errorf("listing expired temp files: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, file := range batch {
			if err := s.limiter.Wait(ctx); err != nil {
				return reclaimed, err
			}
			removed, err := s.Purge(ctx, file)
			if err != nil {
				return reclaimed, fmt.Errorf("purging temp file %s: %w", file.ID, err)
			}
			if removed {
				reclaimed++
			}
		}

		if len(batch) < s.opts.BatchSize {
			break
		}
	}

	if reclaimed > 0 {
		log.Info().
			Int("count", reclaimed).
			Msg("expired temp files reclaimed")
	}
	return reclaimed, nil
}

// SyncStorage deletes blobs that no record references. Blobs younger than
// the orphan grace period are left alone so in-flight uploads survive.
func (s *Service) SyncStorage(ctx context.Context) (int, error) {
	objects, err := s.blobs.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing blobs: %w", err)
	}

	cutoff := s.now().Add(-s.opts.OrphanGrace)
	var candidates []storage.ObjectInfo
	for _, obj := range objects {
		if obj.ModifiedTime.Before(cutoff) {
			candidates = append(candidates, obj)
		}
	}

	deleted := 0
	for start := 0; start < len(candidates); start += syncChunk {
		chunk := candidates[start:min(start+syncChunk, len(candidates))]

		handles := make([]string, len(chunk))
		for i, obj := range chunk {
			handles[i] = obj.Handle
		}
		referenced, err := s.repo.ReferencedHandles(ctx, handles)
		if err != nil {
			return deleted, fmt.Errorf("checking blob references: %w", err)
		}

		for _, obj := range chunk {
			if referenced[obj.Handle] {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return deleted, err
			}
			if err := s.blobs.Delete(ctx, obj.Handle); err != nil {
				log.Error().
					Err(err).
					Str("handle", obj.Handle).
					Msg("error deleting orphaned blob")
				continue
			}
			deleted++
		}
	}

	log.Info().
		Int("scanned", len(objects)).
		Int("deleted", deleted).
		Msg("storage sync completed")
	return deleted, nil
}
