package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/repository"
)

const (
	PlanSheet     = "Plan"
	SegmentsSheet = "Segmentos"

	maxCellRunes = 32000 // excelize rejects cells over 32767 characters
)

// Service produces XLSX workbooks for plans and documents.
type Service struct {
	plansRepo repository.PlanRepository
	docsRepo  repository.DocumentRepository
	logger    *slog.Logger
}

func NewService(plans repository.PlanRepository, docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{plansRepo: plans, docsRepo: docs, logger: logger}
}

// ExportPlanXLSX returns a workbook with one row per plan item, in extraction order.
func (s *Service) ExportPlanXLSX(ctx context.Context, tenantID, planID uuid.UUID) ([]byte, error) {
	start := time.Now()

	plan, err := s.plansRepo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.TenantID != tenantID {
		return nil, common.NotFoundf("plan %s not found", planID)
	}
	items, err := s.plansRepo.ListItems(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan items: %w", err)
	}
	pds, err := s.plansRepo.ListPlanDocuments(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan documents: %w", err)
	}
	labels := make(map[uuid.UUID]string, len(pds))
	for _, pd := range pds {
		labels[pd.ID] = pd.Label()
	}

	f, err := newWorkbook(PlanSheet, []string{
		"Grado",
		"Grado normalizado",
		"Área",
		"Descripción",
		"Título",
		"Período",
		"Ideas de clase",
		"Documento",
		"Fragmento",
	})
	if err != nil {
		return nil, err
	}

	for i, it := range items {
		row := i + 2
		doc := ""
		if it.PlanDocumentID != nil {
			doc = labels[*it.PlanDocumentID]
		}
		writeRow(f, PlanSheet, row,
			deref(it.Grade),
			deref(it.NormalizedGrade),
			it.Area,
			it.Description,
			it.Metadata.Title,
			it.Metadata.Period,
			strings.Join(it.Metadata.ClassIdeas, "\n"),
			doc,
			it.Metadata.FragmentIndex+1,
		)
	}

	_ = f.SetColWidth(PlanSheet, "A", "B", 12) // grades
	_ = f.SetColWidth(PlanSheet, "C", "C", 24) // area
	_ = f.SetColWidth(PlanSheet, "D", "D", 80) // description
	_ = f.SetColWidth(PlanSheet, "E", "G", 32)
	_ = f.SetColWidth(PlanSheet, "H", "H", 40) // document
	_ = f.SetColWidth(PlanSheet, "I", "I", 10)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.plan.xlsx.ok",
		"plan_id", planID,
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportSegmentsXLSX returns a workbook with the segments of a document visible to the tenant.
func (s *Service) ExportSegmentsXLSX(ctx context.Context, tenantID, documentID uuid.UUID) ([]byte, error) {
	start := time.Now()

	doc, err := s.docsRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID && !doc.IsGlobal() {
		return nil, common.NotFoundf("document %s not found", documentID)
	}
	segs, err := s.docsRepo.Segments(ctx, []uuid.UUID{documentID})
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}

	f, err := newWorkbook(SegmentsSheet, []string{"Grado", "Área", "Sección", "Línea inicial", "Línea final", "Contenido"})
	if err != nil {
		return nil, err
	}
	for i, seg := range segs {
		grade := "General"
		if seg.GradeLabel != nil {
			grade = *seg.GradeLabel
		}
		writeRow(f, SegmentsSheet, i+2,
			grade,
			seg.AreaOr(""),
			seg.SectionTitle,
			seg.StartLine+1,
			seg.EndLine,
			seg.ContentText,
		)
	}
	_ = f.SetColWidth(SegmentsSheet, "A", "A", 10)
	_ = f.SetColWidth(SegmentsSheet, "B", "C", 28)
	_ = f.SetColWidth(SegmentsSheet, "D", "E", 12)
	_ = f.SetColWidth(SegmentsSheet, "F", "F", 100)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.segments.xlsx.ok",
		"document_id", documentID,
		"rows", len(segs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// newWorkbook creates a file whose only sheet is named sheet, with a bold header row.
func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for col, v := range values {
		if s, ok := v.(string); ok {
			v = truncate(s, maxCellRunes)
		}
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

