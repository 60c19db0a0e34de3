package tempfiles

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper is the work the cleanup worker schedules
type Reaper interface {
	Sweep(ctx context.Context) (int, error)
	SyncStorage(ctx context.Context) (int, error)
}

type CleanupWorker struct {
	reaper        Reaper
	interval      time.Duration
	syncInterval  time.Duration
	done          chan struct{}
	cleanupTicker *time.Ticker
	syncTicker    *time.Ticker
}

func NewCleanupWorker(reaper Reaper, interval, syncInterval time.Duration) *CleanupWorker {
	return &CleanupWorker{
		reaper:       reaper,
		interval:     interval,
		syncInterval: syncInterval,
		done:         make(chan struct{}),
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	w.performInitialCleanup(ctx)

	w.cleanupTicker = time.NewTicker(w.interval)
	w.syncTicker = time.NewTicker(w.syncInterval)

	go w.run(ctx)

	log.Info().
		Dur("interval", w.interval).
		Dur("sync_interval", w.syncInterval).
		Msg("started cleanup worker")
}

// Stop must be called at most once, after Start
func (w *CleanupWorker) Stop() {
	w.cleanupTicker.Stop()
	w.syncTicker.Stop()
	close(w.done)
	log.Info().Msg("cleanup worker stopped")
}

func (w *CleanupWorker) performInitialCleanup(ctx context.Context) {
	log.Info().Msg("performing initial cleanup")
	w.sweep(ctx)
	w.sync(ctx)
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	if _, err := w.reaper.Sweep(ctx); err != nil && ctx.Err() == nil {
		log.Error().
			Err(err).
			Msg("error sweeping expired temp files")
	}
}

func (w *CleanupWorker) sync(ctx context.Context) {
	if _, err := w.reaper.SyncStorage(ctx); err != nil && ctx.Err() == nil {
		log.Error().
			Err(err).
			Msg("error syncing storage with database")
	}
}

func (w *CleanupWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("context cancelled, cleanup worker shutting down")
			return
		case <-w.done:
			return
		case <-w.cleanupTicker.C:
			w.sweep(ctx)
		case <-w.syncTicker.C:
			w.sync(ctx)
		}
	}
}
