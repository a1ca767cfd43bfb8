package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/segment"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/textextract"
)

// TextExtractor turns uploaded bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) (textextract.Result, error)
}

// Segmenter splits document text into grade/area segments.
type Segmenter interface {
	Segment(ctx context.Context, text string, tenantID uuid.UUID) ([]segment.Record, error)
}

// Metadata is the caller-supplied description of a document. GradeMin and
// GradeMax are derived from the segments when left empty.
type Metadata struct {
	TenantID     uuid.UUID
	Title        string
	Jurisdiction string
	Year         *int
	GradeMin     string
	GradeMax     string
}

type FileRequest struct {
	Metadata
	Data     []byte
	Filename string
	MimeType string
}

type TextRequest struct {
	Metadata
	Text string
}

// Outcome summarizes one ingestion.
type Outcome struct {
	DocumentID   uuid.UUID                `json:"document_id"`
	Status       constants.DocumentStatus `json:"status"`
	SegmentCount int                      `json:"segment_count"`
	ErrorMessage string                   `json:"error_message,omitempty"`
}

// Pipeline stores documents and their segments.
type Pipeline struct {
	Logger    *slog.Logger
	Documents repository.DocumentRepository
	Extractor TextExtractor
	Segmenter Segmenter
}

func NewPipeline(logger *slog.Logger, docs repository.DocumentRepository, ex TextExtractor, seg Segmenter) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, Documents: docs, Extractor: ex, Segmenter: seg}
}

// IngestFile extracts text from an upload and ingests it. When extraction fails
// the document is stored in error state and the *textextract.TextExtractionError
// is returned along with the outcome.
func (p *Pipeline) IngestFile(ctx context.Context, req FileRequest) (Outcome, error) {
	filename := strings.TrimSpace(req.Filename)
	doc := p.newDocument(req.Metadata, filename)
	doc.MimeType = req.MimeType
	if filename != "" {
		doc.SourceFilename = &filename
	}

	res, extractErr := p.Extractor.Extract(ctx, req.Data, filename, req.MimeType)
	if extractErr != nil {
		if err := p.Documents.Create(ctx, doc); err != nil {
			return Outcome{}, err
		}
		out := Outcome{DocumentID: doc.ID, Status: constants.DocumentStatusError, ErrorMessage: extractErr.Error()}
		if err := p.Documents.MarkError(ctx, doc.ID, out.ErrorMessage); err != nil {
			return out, err
		}
		p.Logger.Warn("ingest.file.extract_failed", "document_id", doc.ID, "filename", filename, "error", extractErr)
		return out, extractErr
	}
	for _, w := range res.Warnings {
		p.Logger.Warn("ingest.file.extract_warning", "filename", filename, "warning", w)
	}

	doc.RawText = res.Text
	return p.ingest(ctx, doc, req.Metadata)
}

// IngestText ingests already extracted text. Segmentation failures are recorded
// on the document rather than returned.
func (p *Pipeline) IngestText(ctx context.Context, req TextRequest) (Outcome, error) {
	doc := p.newDocument(req.Metadata, "")
	doc.RawText = req.Text
	return p.ingest(ctx, doc, req.Metadata)
}

func (p *Pipeline) newDocument(meta Metadata, filename string) *entity.Document {
	doc := &entity.Document{
		TenantID: meta.TenantID,
		Title:    ResolveTitle(meta.Title, filename),
		Year:     meta.Year,
		Status:   constants.DocumentStatusProcessing,
	}
	if j := strings.TrimSpace(meta.Jurisdiction); j != "" {
		doc.Jurisdiction = &j
	}
	return doc
}

func (p *Pipeline) ingest(ctx context.Context, doc *entity.Document, meta Metadata) (Outcome, error) {
	start := time.Now()
	if err := p.Documents.Create(ctx, doc); err != nil {
		return Outcome{}, err
	}

	records, err := p.Segmenter.Segment(ctx, doc.RawText, doc.TenantID)
	if err != nil {
		out := Outcome{DocumentID: doc.ID, Status: constants.DocumentStatusError, ErrorMessage: err.Error()}
		if markErr := p.Documents.MarkError(ctx, doc.ID, out.ErrorMessage); markErr != nil {
			return out, markErr
		}
		p.Logger.Error("ingest.segment.failed", "document_id", doc.ID, "error", err)
		return out, nil
	}

	segments := toSegments(records)
	gradeMin, gradeMax := gradeRange(segments)
	if v := strings.TrimSpace(meta.GradeMin); v != "" {
		gradeMin = &v
	}
	if v := strings.TrimSpace(meta.GradeMax); v != "" {
		gradeMax = &v
	}
	if err := p.Documents.MarkReady(ctx, doc.ID, segments, gradeMin, gradeMax); err != nil {
		if markErr := p.Documents.MarkError(ctx, doc.ID, err.Error()); markErr != nil {
			p.Logger.Error("ingest.mark_error.failed", "document_id", doc.ID, "error", markErr)
		}
		return Outcome{DocumentID: doc.ID, Status: constants.DocumentStatusError, ErrorMessage: err.Error()}, err
	}

	p.Logger.Info("ingest.document.ready",
		"document_id", doc.ID,
		"tenant_id", doc.TenantID,
		"segments", len(segments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{DocumentID: doc.ID, Status: constants.DocumentStatusReady, SegmentCount: len(segments)}, nil
}

func toSegments(records []segment.Record) []entity.Segment {
	out := make([]entity.Segment, 0, len(records))
	for _, r := range records {
		out = append(out, entity.Segment{
			GradeLabel:   r.GradeLabel,
			Area:         r.Area,
			SectionTitle: r.SectionTitle,
			ContentText:  r.ContentText,
			StartLine:    r.StartLine,
			EndLine:      r.EndLine,
		})
	}
	return out
}

// gradeRange returns the lowest and highest numeric grade labels. Labels that
// are not plain numbers are ignored.
func gradeRange(segments []entity.Segment) (*string, *string) {
	var grades []int
	for _, s := range segments {
		if s.GradeLabel == nil {
			continue
		}
		if n, err := strconv.Atoi(*s.GradeLabel); err == nil {
			grades = append(grades, n)
		}
	}
	if len(grades) == 0 {
		return nil, nil
	}
	sort.Ints(grades)
	lo, hi := strconv.Itoa(grades[0]), strconv.Itoa(grades[len(grades)-1])
	return &lo, &hi
}

// IsExtractionError reports whether err came from text extraction.
func IsExtractionError(err error) bool {
	var te *textextract.TextExtractionError
	return errors.As(err, &te)
}
