package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

type PlanRepository interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*entity.Plan, error)
	// FindByStudyPlan returns the plan linked to a study plan, or ErrNotFound.
	FindByStudyPlan(ctx context.Context, tenantID, studyPlanID uuid.UUID) (*entity.Plan, error)
	ListPlans(ctx context.Context, tenantID uuid.UUID) ([]*entity.Plan, error)
	// SavePlan inserts the plan when its ID is unset, otherwise updates it.
	SavePlan(ctx context.Context, plan *entity.Plan) error
	CreatePlanDocument(ctx context.Context, doc *entity.PlanDocument) error
	GetPlanDocument(ctx context.Context, id uuid.UUID) (*entity.PlanDocument, error)
	ListPlanDocuments(ctx context.Context, planID uuid.UUID) ([]*entity.PlanDocument, error)
	// ReplaceItems stores items for (plan, planDocument) in one transaction. With
	// deleteExisting, previous items of the same pair are removed first; a nil
	// planDocumentID then clears every item of the plan.
	ReplaceItems(ctx context.Context, planID uuid.UUID, planDocumentID *uuid.UUID, items []entity.PlanItem, deleteExisting bool) (int, error)
	ListItems(ctx context.Context, planID uuid.UUID) ([]entity.PlanItem, error)
}

type planRepo struct {
	db  *DB
	log *slog.Logger
}

func NewPlanRepository(db *DB, log *slog.Logger) PlanRepository {
	if log == nil {
		log = slog.Default()
	}
	return &planRepo{db: db, log: log}
}

const planColumns = `id, tenant_id, study_plan_id, name, academic_year, jurisdiction, description, raw_text, created_at, updated_at`

func scanPlan(s scanner) (*entity.Plan, error) {
	var p entity.Plan
	if err := s.Scan(&p.ID, &p.TenantID, &p.StudyPlanID, &p.Name, &p.AcademicYear, &p.Jurisdiction, &p.Description,
		&p.RawText, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepo) GetPlan(ctx context.Context, id uuid.UUID) (*entity.Plan, error) {
	p, err := scanPlan(r.db.queryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("plan %s not found", id)
	}
	if err != nil {
		return nil, common.DatabaseError("get plan", err)
	}
	return p, nil
}

func (r *planRepo) FindByStudyPlan(ctx context.Context, tenantID, studyPlanID uuid.UUID) (*entity.Plan, error) {
	p, err := scanPlan(r.db.queryRow(ctx, `SELECT `+planColumns+` FROM plans
		WHERE tenant_id = ? AND study_plan_id = ? ORDER BY created_at LIMIT 1`, tenantID, studyPlanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("no plan for study plan %s", studyPlanID)
	}
	if err != nil {
		return nil, common.DatabaseError("find plan", err)
	}
	return p, nil
}

func (r *planRepo) ListPlans(ctx context.Context, tenantID uuid.UUID) ([]*entity.Plan, error) {
	rows, err := r.db.query(ctx, `SELECT `+planColumns+` FROM plans WHERE tenant_id = ? ORDER BY updated_at DESC, id`, tenantID)
	if err != nil {
		return nil, common.DatabaseError("list plans", err)
	}
	defer rows.Close()
	var out []*entity.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, common.DatabaseError("scan plan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list plans", err)
	}
	return out, nil
}

func (r *planRepo) SavePlan(ctx context.Context, plan *entity.Plan) error {
	now := time.Now().UTC()
	plan.UpdatedAt = now
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
		plan.CreatedAt = now
		_, err := r.db.exec(ctx, r.db, `INSERT INTO plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.TenantID, plan.StudyPlanID, plan.Name, plan.AcademicYear, plan.Jurisdiction, plan.Description,
			plan.RawText, plan.CreatedAt, plan.UpdatedAt)
		if err != nil {
			r.log.Error("plan create failed", "err", err)
			return common.DatabaseError("create plan", err)
		}
		r.log.Info("plan created", "plan_id", plan.ID, "tenant_id", plan.TenantID)
		return nil
	}
	res, err := r.db.exec(ctx, r.db, `UPDATE plans SET study_plan_id = ?, name = ?, academic_year = ?, jurisdiction = ?,
		description = ?, raw_text = ?, updated_at = ? WHERE id = ?`,
		plan.StudyPlanID, plan.Name, plan.AcademicYear, plan.Jurisdiction, plan.Description, plan.RawText, plan.UpdatedAt, plan.ID)
	if err == nil {
		err = expectOne(res, "plan", plan.ID)
	}
	if err != nil {
		return wrapDB("update plan", err)
	}
	return nil
}

func (r *planRepo) CreatePlanDocument(ctx context.Context, doc *entity.PlanDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	_, err := r.db.exec(ctx, r.db, `INSERT INTO plan_documents
		(id, plan_id, tenant_id, document_id, title, original_filename, subject_hint) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.PlanID, doc.TenantID, doc.DocumentID, doc.Title, doc.OriginalFilename, doc.SubjectHint)
	if err != nil {
		return common.DatabaseError("create plan document", err)
	}
	return nil
}

const planDocumentColumns = `id, plan_id, tenant_id, document_id, title, original_filename, subject_hint`

func scanPlanDocument(s scanner) (*entity.PlanDocument, error) {
	var d entity.PlanDocument
	if err := s.Scan(&d.ID, &d.PlanID, &d.TenantID, &d.DocumentID, &d.Title, &d.OriginalFilename, &d.SubjectHint); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *planRepo) GetPlanDocument(ctx context.Context, id uuid.UUID) (*entity.PlanDocument, error) {
	d, err := scanPlanDocument(r.db.queryRow(ctx, `SELECT `+planDocumentColumns+` FROM plan_documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("plan document %s not found", id)
	}
	if err != nil {
		return nil, common.DatabaseError("get plan document", err)
	}
	return d, nil
}

func (r *planRepo) ListPlanDocuments(ctx context.Context, planID uuid.UUID) ([]*entity.PlanDocument, error) {
	rows, err := r.db.query(ctx, `SELECT `+planDocumentColumns+` FROM plan_documents WHERE plan_id = ? ORDER BY title, id`, planID)
	if err != nil {
		return nil, common.DatabaseError("list plan documents", err)
	}
	defer rows.Close()
	var out []*entity.PlanDocument
	for rows.Next() {
		d, err := scanPlanDocument(rows)
		if err != nil {
			return nil, common.DatabaseError("scan plan document", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list plan documents", err)
	}
	return out, nil
}

func (r *planRepo) ReplaceItems(ctx context.Context, planID uuid.UUID, planDocumentID *uuid.UUID, items []entity.PlanItem, deleteExisting bool) (int, error) {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if deleteExisting {
			var err error
			if planDocumentID != nil {
				_, err = r.db.exec(ctx, tx, `DELETE FROM plan_items WHERE plan_id = ? AND plan_document_id = ?`, planID, *planDocumentID)
			} else {
				_, err = r.db.exec(ctx, tx, `DELETE FROM plan_items WHERE plan_id = ?`, planID)
			}
			if err != nil {
				return err
			}
		}
		var next int
		if err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT COALESCE(MAX(position) + 1, 0) FROM plan_items WHERE plan_id = ?`), planID).Scan(&next); err != nil {
			return err
		}
		for i := range items {
			it := &items[i]
			if it.ID == uuid.Nil {
				it.ID = uuid.New()
			}
			it.PlanID = planID
			it.PlanDocumentID = planDocumentID
			meta, err := json.Marshal(it.Metadata)
			if err != nil {
				return err
			}
			if _, err := r.db.exec(ctx, tx, `INSERT INTO plan_items
				(id, plan_id, plan_document_id, grade, normalized_grade, area, description, metadata, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				it.ID, planID, planDocumentID, it.Grade, it.NormalizedGrade, it.Area, it.Description, string(meta), next+i,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("plan items replace failed", "plan_id", planID, "err", err)
		return 0, common.DatabaseError("replace plan items", err)
	}
	r.log.Info("plan items stored", "plan_id", planID, "plan_document_id", planDocumentID, "items", len(items))
	return len(items), nil
}

func (r *planRepo) ListItems(ctx context.Context, planID uuid.UUID) ([]entity.PlanItem, error) {
	rows, err := r.db.query(ctx, `SELECT id, plan_id, plan_document_id, grade, normalized_grade, area, description, metadata
		FROM plan_items WHERE plan_id = ? ORDER BY position, id`, planID)
	if err != nil {
		return nil, common.DatabaseError("list plan items", err)
	}
	defer rows.Close()
	var out []entity.PlanItem
	for rows.Next() {
		var it entity.PlanItem
		var meta string
		if err := rows.Scan(&it.ID, &it.PlanID, &it.PlanDocumentID, &it.Grade, &it.NormalizedGrade, &it.Area, &it.Description, &meta); err != nil {
			return nil, common.DatabaseError("scan plan item", err)
		}
		if err := json.Unmarshal([]byte(meta), &it.Metadata); err != nil {
			r.log.Warn("plan item metadata unreadable", "item_id", it.ID, "err", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list plan items", err)
	}
	return out, nil
}
