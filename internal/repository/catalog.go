package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

// CatalogRepository persists grade aliases, area keywords and prompts.
// It satisfies catalog.Store and catalog.Writer.
type CatalogRepository interface {
	GradeAliases(ctx context.Context, tenantID uuid.UUID) ([]entity.GradeAlias, error)
	AreaKeywords(ctx context.Context, tenantID uuid.UUID) ([]entity.AreaKeyword, error)
	ActivePrompt(ctx context.Context, promptContext string, tenantID uuid.UUID) (*entity.Prompt, error)
	UpsertGradeAlias(ctx context.Context, row entity.GradeAlias) error
	UpsertAreaKeyword(ctx context.Context, row entity.AreaKeyword) error
	UpsertPrompt(ctx context.Context, row entity.Prompt) error
}

type catalogRepo struct {
	db         *DB
	log        *slog.Logger
	insertOnly bool
}

func NewCatalogRepository(db *DB, log *slog.Logger) CatalogRepository {
	if log == nil {
		log = slog.Default()
	}
	return &catalogRepo{db: db, log: log}
}

// NewCatalogSeeder returns a repository whose upserts never overwrite existing
// rows, for seeding built-in defaults without clobbering edits.
func NewCatalogSeeder(db *DB, log *slog.Logger) CatalogRepository {
	r := NewCatalogRepository(db, log).(*catalogRepo)
	r.insertOnly = true
	return r
}

func (r *catalogRepo) GradeAliases(ctx context.Context, tenantID uuid.UUID) ([]entity.GradeAlias, error) {
	rows, err := r.db.query(ctx, `SELECT tenant_id, alias, normalized_value FROM grade_aliases WHERE tenant_id = ? ORDER BY alias`, tenantID)
	if err != nil {
		return nil, common.DatabaseError("list grade aliases", err)
	}
	defer rows.Close()
	var out []entity.GradeAlias
	for rows.Next() {
		var a entity.GradeAlias
		if err := rows.Scan(&a.TenantID, &a.Alias, &a.NormalizedValue); err != nil {
			return nil, common.DatabaseError("scan grade alias", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list grade aliases", err)
	}
	return out, nil
}

func (r *catalogRepo) AreaKeywords(ctx context.Context, tenantID uuid.UUID) ([]entity.AreaKeyword, error) {
	rows, err := r.db.query(ctx, `SELECT tenant_id, label, pattern FROM area_keywords WHERE tenant_id = ? ORDER BY position, label`, tenantID)
	if err != nil {
		return nil, common.DatabaseError("list area keywords", err)
	}
	defer rows.Close()
	var out []entity.AreaKeyword
	for rows.Next() {
		var k entity.AreaKeyword
		if err := rows.Scan(&k.TenantID, &k.Label, &k.Pattern); err != nil {
			return nil, common.DatabaseError("scan area keyword", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("list area keywords", err)
	}
	return out, nil
}

func (r *catalogRepo) ActivePrompt(ctx context.Context, promptContext string, tenantID uuid.UUID) (*entity.Prompt, error) {
	var p entity.Prompt
	err := r.db.queryRow(ctx, `SELECT tenant_id, context, text, active, updated_at FROM prompts
		WHERE tenant_id = ? AND context = ? AND active = ?
		ORDER BY updated_at DESC LIMIT 1`, tenantID, promptContext, true).
		Scan(&p.TenantID, &p.Context, &p.Text, &p.Active, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.DatabaseError("get active prompt", err)
	}
	return &p, nil
}

func (r *catalogRepo) UpsertGradeAlias(ctx context.Context, row entity.GradeAlias) error {
	conflict := `DO UPDATE SET normalized_value = excluded.normalized_value`
	if r.insertOnly {
		conflict = `DO NOTHING`
	}
	_, err := r.db.exec(ctx, r.db, `INSERT INTO grade_aliases (tenant_id, alias, normalized_value) VALUES (?, ?, ?)
		ON CONFLICT (tenant_id, alias) `+conflict, row.TenantID, row.Alias, row.NormalizedValue)
	if err != nil {
		return common.DatabaseError("upsert grade alias", err)
	}
	r.log.Debug("grade alias stored", "tenant_id", row.TenantID, "alias", row.Alias)
	return nil
}

func (r *catalogRepo) UpsertAreaKeyword(ctx context.Context, row entity.AreaKeyword) error {
	conflict := `DO UPDATE SET pattern = excluded.pattern`
	if r.insertOnly {
		conflict = `DO NOTHING`
	}
	_, err := r.db.exec(ctx, r.db, `INSERT INTO area_keywords (tenant_id, label, pattern, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM area_keywords WHERE tenant_id = ?))
		ON CONFLICT (tenant_id, label) `+conflict, row.TenantID, row.Label, row.Pattern, row.TenantID)
	if err != nil {
		return common.DatabaseError("upsert area keyword", err)
	}
	r.log.Debug("area keyword stored", "tenant_id", row.TenantID, "label", row.Label)
	return nil
}

// UpsertPrompt refreshes an identical prompt or stores a new version. Activating a
// prompt deactivates the other versions of the same context.
func (r *catalogRepo) UpsertPrompt(ctx context.Context, row entity.Prompt) error {
	now := time.Now().UTC()
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if r.insertOnly {
			var n int
			if err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM prompts WHERE tenant_id = ? AND context = ?`),
				row.TenantID, row.Context).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
		}
		if row.Active {
			if _, err := r.db.exec(ctx, tx, `UPDATE prompts SET active = ? WHERE tenant_id = ? AND context = ?`,
				false, row.TenantID, row.Context); err != nil {
				return err
			}
		}
		res, err := r.db.exec(ctx, tx, `UPDATE prompts SET active = ?, updated_at = ? WHERE tenant_id = ? AND context = ? AND text = ?`,
			row.Active, now, row.TenantID, row.Context, row.Text)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n > 0 {
			return err
		}
		_, err = r.db.exec(ctx, tx, `INSERT INTO prompts (id, tenant_id, context, text, active, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New(), row.TenantID, row.Context, row.Text, row.Active, now)
		return err
	})
	if err != nil {
		return common.DatabaseError("upsert prompt", err)
	}
	r.log.Debug("prompt stored", "tenant_id", row.TenantID, "context", row.Context, "active", row.Active)
	return nil
}
