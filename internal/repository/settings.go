package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

type SettingsRepository interface {
	// Get returns the tenant's settings; a tenant without a row gets empty settings.
	Get(ctx context.Context, tenantID uuid.UUID) (entity.TenantSettings, error)
	Put(ctx context.Context, s entity.TenantSettings) error
}

type settingsRepo struct {
	db  *DB
	log *slog.Logger
}

func NewSettingsRepository(db *DB, log *slog.Logger) SettingsRepository {
	if log == nil {
		log = slog.Default()
	}
	return &settingsRepo{db: db, log: log}
}

func (r *settingsRepo) Get(ctx context.Context, tenantID uuid.UUID) (entity.TenantSettings, error) {
	s := entity.TenantSettings{TenantID: tenantID}
	err := r.db.queryRow(ctx, `SELECT ai_provider, ai_model FROM tenant_settings WHERE tenant_id = ?`, tenantID).
		Scan(&s.AIProvider, &s.AIModel)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return s, common.DatabaseError("get tenant settings", err)
	}
	return s, nil
}

func (r *settingsRepo) Put(ctx context.Context, s entity.TenantSettings) error {
	_, err := r.db.exec(ctx, r.db, `INSERT INTO tenant_settings (tenant_id, ai_provider, ai_model) VALUES (?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET ai_provider = excluded.ai_provider, ai_model = excluded.ai_model`,
		s.TenantID, s.AIProvider, s.AIModel)
	if err != nil {
		return common.DatabaseError("put tenant settings", err)
	}
	r.log.Info("tenant settings stored", "tenant_id", s.TenantID, "ai_provider", s.AIProvider, "ai_model", s.AIModel)
	return nil
}
