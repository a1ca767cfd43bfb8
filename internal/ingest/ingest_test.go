package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/catalog"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/segment"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/textextract"
)

const sampleText = "Tercer grado\nMATEMÁTICA\nSumar y restar hasta 100.\nCuarto grado\nLENGUA\nLeer cuentos."

type failingSegmenter struct{}

func (failingSegmenter) Segment(context.Context, string, uuid.UUID) ([]segment.Record, error) {
	return nil, errors.New("segmentation failed: boom")
}

func newPipeline(t *testing.T, seg Segmenter) (*Pipeline, repository.DocumentRepository) {
	t.Helper()
	db, err := repository.OpenSQLite(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(context.Background()))

	docs := repository.NewDocumentRepository(db, nil)
	if seg == nil {
		seg = segment.NewEngine(catalog.New(nil, nil), nil)
	}
	ex := textextract.NewExtractor(textextract.Config{TempDir: t.TempDir()}, nil)
	return NewPipeline(nil, docs, ex, seg), docs
}

func TestIngestText_Ready(t *testing.T) {
	p, docs := newPipeline(t, nil)
	ctx := context.Background()
	tenant := uuid.New()

	out, err := p.IngestText(ctx, TextRequest{
		Metadata: Metadata{TenantID: tenant, Title: "  Diseño Primaria  ", Jurisdiction: " CABA "},
		Text:     sampleText,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusReady, out.Status)
	assert.Equal(t, 2, out.SegmentCount)
	assert.Empty(t, out.ErrorMessage)

	doc, err := docs.Get(ctx, out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Diseño Primaria", doc.Title)
	assert.Equal(t, "CABA", *doc.Jurisdiction)
	assert.Equal(t, 2, doc.SegmentCount)
	assert.Equal(t, "3", *doc.GradeMin)
	assert.Equal(t, "4", *doc.GradeMax)
	assert.Equal(t, sampleText, doc.RawText)

	segs, err := docs.Segments(ctx, []uuid.UUID{doc.ID})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "Lengua", *segs[0].Area)
	assert.Equal(t, "Matemática", *segs[1].Area)
}

func TestIngestText_CallerGradeRangeWins(t *testing.T) {
	p, docs := newPipeline(t, nil)
	ctx := context.Background()

	out, err := p.IngestText(ctx, TextRequest{
		Metadata: Metadata{GradeMin: "1", GradeMax: "7"},
		Text:     sampleText,
	})
	require.NoError(t, err)
	doc, err := docs.Get(ctx, out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Currículum", doc.Title)
	assert.True(t, doc.IsGlobal())
	assert.Equal(t, "1", *doc.GradeMin)
	assert.Equal(t, "7", *doc.GradeMax)
}

func TestIngestText_EmptyTextIsReadyWithoutSegments(t *testing.T) {
	p, _ := newPipeline(t, nil)
	out, err := p.IngestText(context.Background(), TextRequest{Text: "  \n "})
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusReady, out.Status)
	assert.Zero(t, out.SegmentCount)
}

func TestIngestText_SegmentationFailureMarksError(t *testing.T) {
	p, docs := newPipeline(t, failingSegmenter{})
	ctx := context.Background()

	out, err := p.IngestText(ctx, TextRequest{Text: sampleText})
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusError, out.Status)
	assert.Contains(t, out.ErrorMessage, "boom")

	doc, err := docs.Get(ctx, out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusError, doc.Status)
	assert.Zero(t, doc.SegmentCount)
	segs, err := docs.Segments(ctx, []uuid.UUID{doc.ID})
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestIngestFile_PlainText(t *testing.T) {
	p, docs := newPipeline(t, nil)
	ctx := context.Background()

	out, err := p.IngestFile(ctx, FileRequest{Data: []byte(sampleText), Filename: "diseño 3er ciclo.txt", MimeType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusReady, out.Status)

	doc, err := docs.Get(ctx, out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "diseño_3er_ciclo.txt", doc.Title)
	assert.Equal(t, "diseño 3er ciclo.txt", *doc.SourceFilename)
	assert.Equal(t, "text/plain", doc.MimeType)
}

func TestIngestFile_UnsupportedFormatRecordsError(t *testing.T) {
	p, docs := newPipeline(t, nil)
	ctx := context.Background()

	out, err := p.IngestFile(ctx, FileRequest{Data: []byte{0x89, 0x50}, Filename: "scan.png", MimeType: "image/png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, textextract.ErrUnsupportedFormat)
	assert.True(t, IsExtractionError(err))
	assert.Equal(t, constants.DocumentStatusError, out.Status)

	doc, err := docs.Get(ctx, out.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusError, doc.Status)
	require.NotNil(t, doc.ErrorMessage)
	assert.Contains(t, *doc.ErrorMessage, "unsupported")
}

func TestResolveTitle(t *testing.T) {
	assert.Equal(t, "Plan", ResolveTitle(" Plan ", "x.pdf"))
	assert.Equal(t, "plan_2024__final_.pdf", ResolveTitle("", "plan 2024 (final).pdf"))
	assert.Equal(t, "Currículum", ResolveTitle(" ", " "))
}

func TestIngestDirectory(t *testing.T) {
	p, _ := newPipeline(t, nil)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte(sampleText), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("LENGUA\nLeer."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photo.png"), []byte{1, 2}, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden", "c.txt"), []byte("x"), 0o644))

	results, stats, err := p.IngestDirectory(context.Background(), uuid.Nil, root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Zero(t, stats.Failed)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Empty(t, r.Err)
		assert.Equal(t, constants.DocumentStatusReady, r.Status)
	}

	_, _, err = p.IngestDirectory(context.Background(), uuid.Nil, " ", true)
	assert.Error(t, err)
}

func TestStartWatcher_EmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case got := <-paths:
		assert.Equal(t, existing, got)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit the existing file")
	}

	added := filepath.Join(root, "nuevo.txt")
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(added, []byte("LENGUA"), 0o644))

	select {
	case got := <-paths:
		assert.Equal(t, added, got)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not emit the new file")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-paths
		return !open
	}, 2*time.Second, 10*time.Millisecond)

	_, _, err = StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
