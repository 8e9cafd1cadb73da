package jobs

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyscout/product-scraper/internal/models"
)

func testInputs(n int) []models.ScrapeRequest {
	out := make([]models.ScrapeRequest, n)
	for i := range out {
		out[i] = models.ScrapeRequest{Brand: "hape", Name: "toy"}
	}
	return out
}

func TestCreateAndGet(t *testing.T) {
	store := NewStore(slog.Default())

	created := store.Create(testInputs(3))
	assert.NotEmpty(t, created.JobID)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, 3, created.TotalProducts)
	assert.Equal(t, 0, created.Progress)
	require.Len(t, created.Results, 3)
	for _, r := range created.Results {
		assert.Nil(t, r)
	}
	assert.Len(t, created.OriginalProducts, 3)

	got, ok := store.Get(created.JobID)
	require.True(t, ok)
	assert.Equal(t, created.JobID, got.JobID)

	_, ok = store.Get("no-such-job")
	assert.False(t, ok)
}

func TestProgressMath(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(3))

	require.NoError(t, store.SetResult(job.JobID, 0, models.ScrapeResult{Status: models.StatusSuccess}))
	snap, _ := store.Get(job.JobID)
	assert.Equal(t, 33, snap.Progress)

	require.NoError(t, store.SetResult(job.JobID, 2, models.ScrapeResult{Status: models.StatusError}))
	snap, _ = store.Get(job.JobID)
	assert.Equal(t, 66, snap.Progress)

	require.NoError(t, store.SetResult(job.JobID, 1, models.ScrapeResult{Status: models.StatusSuccess}))
	snap, _ = store.Get(job.JobID)
	assert.Equal(t, 100, snap.Progress)
}

func TestProgressEmptyBatchIsComplete(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(nil)

	snap, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, 0, snap.TotalProducts)
}

func TestSetResultOutOfRange(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(2))

	assert.Error(t, store.SetResult(job.JobID, -1, models.ScrapeResult{}))
	assert.Error(t, store.SetResult(job.JobID, 2, models.ScrapeResult{}))
	assert.Error(t, store.SetResult("missing", 0, models.ScrapeResult{}))
}

func TestStatusTransitions(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(1))

	require.NoError(t, store.SetStatus(job.JobID, StatusInProgress, ""))
	snap, _ := store.Get(job.JobID)
	assert.Equal(t, StatusInProgress, snap.Status)

	require.NoError(t, store.SetStatus(job.JobID, StatusCompleted, ""))

	// Terminal states absorb every further transition.
	assert.Error(t, store.SetStatus(job.JobID, StatusInProgress, ""))
	assert.Error(t, store.SetStatus(job.JobID, StatusFailed, "late failure"))

	snap, _ = store.Get(job.JobID)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Empty(t, snap.Error)
}

func TestFailedStatusCarriesError(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(1))

	require.NoError(t, store.SetStatus(job.JobID, StatusFailed, "browser crashed"))
	snap, _ := store.Get(job.JobID)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "browser crashed", snap.Error)
}

func TestDelete(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(1))

	assert.True(t, store.Delete(job.JobID))
	_, ok := store.Get(job.JobID)
	assert.False(t, ok)
	assert.False(t, store.Delete(job.JobID))
	assert.Equal(t, 0, store.Len())
}

func TestReapRemovesOnlyStaleJobs(t *testing.T) {
	store := NewStore(slog.Default())

	now := time.Now()
	store.now = func() time.Time { return now.Add(-2 * time.Hour) }
	stale := store.Create(testInputs(1))

	store.now = func() time.Time { return now.Add(-10 * time.Second) }
	fresh := store.Create(testInputs(1))

	store.now = func() time.Time { return now }
	removed := store.Reap(time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := store.Get(stale.JobID)
	assert.False(t, ok)
	_, ok = store.Get(fresh.JobID)
	assert.True(t, ok)
}

func TestReapUsesUpdatedAt(t *testing.T) {
	store := NewStore(slog.Default())

	now := time.Now()
	store.now = func() time.Time { return now.Add(-2 * time.Hour) }
	job := store.Create(testInputs(1))

	// A recent result write refreshes the job and keeps it alive.
	store.now = func() time.Time { return now.Add(-time.Minute) }
	require.NoError(t, store.SetResult(job.JobID, 0, models.ScrapeResult{Status: models.StatusSuccess}))

	store.now = func() time.Time { return now }
	assert.Equal(t, 0, store.Reap(time.Hour))
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(2))
	require.NoError(t, store.SetResult(job.JobID, 0, models.ScrapeResult{Status: models.StatusSuccess}))

	snap, _ := store.Get(job.JobID)
	snap.Results[0].Status = "mutated"
	snap.OriginalProducts[0].Brand = "mutated"

	again, _ := store.Get(job.JobID)
	assert.Equal(t, models.StatusSuccess, again.Results[0].Status)
	assert.Equal(t, "hape", again.OriginalProducts[0].Brand)
}

func TestConcurrentResultWrites(t *testing.T) {
	store := NewStore(slog.Default())
	job := store.Create(testInputs(50))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			_ = store.SetResult(job.JobID, index, models.ScrapeResult{Status: models.StatusSuccess})
		}(i)
	}
	wg.Wait()

	snap, _ := store.Get(job.JobID)
	assert.Equal(t, 100, snap.Progress)
	for _, r := range snap.Results {
		require.NotNil(t, r)
	}
}
