package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// MarkReady replaces the document's segments and flips it to ready in one transaction.
	MarkReady(ctx context.Context, id uuid.UUID, segments []entity.Segment, gradeMin, gradeMax *string) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	// ListVisible returns the tenant's documents plus global ones, newest first.
	ListVisible(ctx context.Context, tenantID uuid.UUID) ([]*entity.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Segments returns the segments of the given documents ordered by document, area and start line.
	Segments(ctx context.Context, documentIDs []uuid.UUID) ([]entity.Segment, error)
}

type documentRepo struct {
	db  *DB
	log *slog.Logger
}

func NewDocumentRepository(db *DB, log *slog.Logger) DocumentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &documentRepo{db: db, log: log}
}

const documentColumns = `id, tenant_id, title, jurisdiction, year, source_filename, mime_type, raw_text,
	status, error_message, grade_min, grade_max, segment_count, created_at`

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentStatusProcessing
	}
	doc.CreatedAt = time.Now().UTC()
	_, err := r.db.exec(ctx, r.db, `INSERT INTO curriculum_documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.TenantID, doc.Title, doc.Jurisdiction, doc.Year, doc.SourceFilename, doc.MimeType, doc.RawText,
		string(doc.Status), doc.ErrorMessage, doc.GradeMin, doc.GradeMax, doc.SegmentCount, doc.CreatedAt,
	)
	if err != nil {
		r.log.Error("document create failed", "document_id", doc.ID, "err", err)
		return common.DatabaseError("create document", err)
	}
	r.log.Info("document created", "document_id", doc.ID, "tenant_id", doc.TenantID, "status", doc.Status)
	return nil
}

func (r *documentRepo) MarkReady(ctx context.Context, id uuid.UUID, segments []entity.Segment, gradeMin, gradeMax *string) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.db.exec(ctx, tx, `DELETE FROM curriculum_segments WHERE document_id = ?`, id); err != nil {
			return err
		}
		for i := range segments {
			s := &segments[i]
			if s.ID == uuid.Nil {
				s.ID = uuid.New()
			}
			s.DocumentID = id
			if _, err := r.db.exec(ctx, tx, `INSERT INTO curriculum_segments
				(id, document_id, grade_label, area, section_title, content_text, start_line, end_line)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, id, s.GradeLabel, s.Area, s.SectionTitle, s.ContentText, s.StartLine, s.EndLine,
			); err != nil {
				return err
			}
		}
		res, err := r.db.exec(ctx, tx, `UPDATE curriculum_documents
			SET status = ?, error_message = NULL, segment_count = ?, grade_min = ?, grade_max = ?
			WHERE id = ?`,
			string(constants.DocumentStatusReady), len(segments), gradeMin, gradeMax, id,
		)
		if err != nil {
			return err
		}
		return expectOne(res, "document", id)
	})
	if err != nil {
		r.log.Error("document mark ready failed", "document_id", id, "err", err)
		return wrapDB("mark document ready", err)
	}
	r.log.Info("document ready", "document_id", id, "segments", len(segments))
	return nil
}

func (r *documentRepo) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	res, err := r.db.exec(ctx, r.db, `UPDATE curriculum_documents
		SET status = ?, error_message = ?, segment_count = 0 WHERE id = ?`,
		string(constants.DocumentStatusError), message, id,
	)
	if err == nil {
		err = expectOne(res, "document", id)
	}
	if err != nil {
		r.log.Error("document mark error failed", "document_id", id, "err", err)
		return wrapDB("mark document error", err)
	}
	r.log.Warn("document failed", "document_id", id, "error", message)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.queryRow(ctx, `SELECT `+documentColumns+` FROM curriculum_documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("document %s not found", id)
	}
	if err != nil {
		return nil, common.DatabaseError("get document", err)
	}
	return doc, nil
}

func (r *documentRepo) ListVisible(ctx context.Context, tenantID uuid.UUID) ([]*entity.Document, error) {
	rows, err := r.db.query(ctx, `SELECT `+documentColumns+` FROM curriculum_documents
		WHERE tenant_id = ? OR tenant_id = ?
		ORDER BY created_at DESC, id`, tenantID, uuid.Nil)
	if err != nil {
		return nil, common.DatabaseError("list documents", err)
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, common.DatabaseError("scan document", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list documents", err)
	}
	return out, nil
}

func (r *documentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.db.exec(ctx, tx, `DELETE FROM plan_items WHERE plan_document_id IN
			(SELECT id FROM plan_documents WHERE document_id = ?)`, id); err != nil {
			return err
		}
		if _, err := r.db.exec(ctx, tx, `DELETE FROM plan_documents WHERE document_id = ?`, id); err != nil {
			return err
		}
		if _, err := r.db.exec(ctx, tx, `DELETE FROM curriculum_segments WHERE document_id = ?`, id); err != nil {
			return err
		}
		res, err := r.db.exec(ctx, tx, `DELETE FROM curriculum_documents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return expectOne(res, "document", id)
	})
	if err != nil {
		return wrapDB("delete document", err)
	}
	r.log.Info("document deleted", "document_id", id)
	return nil
}

func (r *documentRepo) Segments(ctx context.Context, documentIDs []uuid.UUID) ([]entity.Segment, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}
	rows, err := r.db.query(ctx, `SELECT id, document_id, grade_label, area, section_title, content_text, start_line, end_line
		FROM curriculum_segments WHERE document_id IN (`+placeholders(len(args))+`)
		ORDER BY document_id, COALESCE(area, ''), start_line`, args...)
	if err != nil {
		return nil, common.DatabaseError("list segments", err)
	}
	defer rows.Close()

	var out []entity.Segment
	for rows.Next() {
		var s entity.Segment
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.GradeLabel, &s.Area, &s.SectionTitle, &s.ContentText, &s.StartLine, &s.EndLine); err != nil {
			return nil, common.DatabaseError("scan segment", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list segments", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*entity.Document, error) {
	var d entity.Document
	var status string
	if err := s.Scan(&d.ID, &d.TenantID, &d.Title, &d.Jurisdiction, &d.Year, &d.SourceFilename, &d.MimeType, &d.RawText,
		&status, &d.ErrorMessage, &d.GradeMin, &d.GradeMax, &d.SegmentCount, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Status = constants.DocumentStatus(status)
	return &d, nil
}

func expectOne(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NotFoundf("%s %s not found", kind, id)
	}
	return nil
}

// wrapDB keeps typed application errors and wraps everything else as a database error.
func wrapDB(op string, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return common.DatabaseError(op, err)
}
