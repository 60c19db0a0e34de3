package tempfiles

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingReaper struct {
	sweeps atomic.Int32
	syncs  atomic.Int32
}

func (r *countingReaper) Sweep(ctx context.Context) (int, error) {
	r.sweeps.Add(1)
	return 0, nil
}

func (r *countingReaper) SyncStorage(ctx context.Context) (int, error) {
	r.syncs.Add(1)
	return 0, nil
}

func TestCleanupWorker(t *testing.T) {
	reaper := &countingReaper{}
	worker := NewCleanupWorker(reaper, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)

	// Initial pass runs synchronously
	assert.Equal(t, int32(1), reaper.sweeps.Load())
	assert.Equal(t, int32(1), reaper.syncs.Load())

	assert.Eventually(t, func() bool {
		return reaper.sweeps.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	stopped := reaper.sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, reaper.sweeps.Load(), stopped+1)
	assert.Equal(t, int32(1), reaper.syncs.Load())
}
