package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
)

// Job is one file waiting to be ingested for a tenant.
type Job struct {
	Path        string
	TenantID    uuid.UUID
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// PathIngestor is the part of the ingestion pipeline the workers need.
type PathIngestor interface {
	IngestPath(ctx context.Context, tenantID uuid.UUID, path string) (ingest.Outcome, error)
}
