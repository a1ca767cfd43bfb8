package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
)

type fakeIngestor struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeIngestor) IngestPath(ctx context.Context, tenantID uuid.UUID, path string) (ingest.Outcome, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if path == "bad.png" {
		return ingest.Outcome{}, errors.New("unsupported")
	}
	if _, ok := ctx.Deadline(); !ok {
		return ingest.Outcome{}, errors.New("missing deadline")
	}
	return ingest.Outcome{DocumentID: uuid.New(), Status: constants.DocumentStatusReady}, nil
}

func TestIngestQueue_ProcessesAllJobsBeforeShutdown(t *testing.T) {
	ing := &fakeIngestor{}
	var mu sync.Mutex
	results := map[string]Result{}

	q := NewIngestQueue(ing, nil,
		WithWorkers(3),
		WithQueueSize(1),
		WithProcessTimeout(time.Second),
		WithResultHook(func(j Job, r Result) {
			mu.Lock()
			results[j.Path] = r
			mu.Unlock()
		}),
	)
	tenant := uuid.New()
	for _, p := range []string{"a.txt", "b.pdf", "bad.png", "c.txt"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p, TenantID: tenant}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, []string{"a.txt", "b.pdf", "bad.png", "c.txt"}, ing.paths)
	require.Len(t, results, 4)
	assert.NoError(t, results["a.txt"].Err)
	assert.Equal(t, string(constants.DocumentStatusReady), results["a.txt"].Status)
	assert.NotEmpty(t, results["a.txt"].DocumentID)
	assert.Error(t, results["bad.png"].Err)
	assert.Empty(t, results["bad.png"].DocumentID)
}

func TestIngestQueue_EnqueueAfterShutdownIsDropped(t *testing.T) {
	ing := &fakeIngestor{}
	q := NewIngestQueue(ing, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "late.txt"}))
	assert.Empty(t, ing.paths)
}
