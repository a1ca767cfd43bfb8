package repository

import (
	"context"
	"fmt"
	"strings"
)

// schema is written for Postgres and SQLite alike; {{ts}} is the timestamp type.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS curriculum_documents (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		title TEXT NOT NULL,
		jurisdiction TEXT,
		year INTEGER,
		source_filename TEXT,
		mime_type TEXT NOT NULL DEFAULT '',
		raw_text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_message TEXT,
		grade_min TEXT,
		grade_max TEXT,
		segment_count INTEGER NOT NULL DEFAULT 0,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_curriculum_documents_tenant ON curriculum_documents (tenant_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS curriculum_segments (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES curriculum_documents (id) ON DELETE CASCADE,
		grade_label TEXT,
		area TEXT,
		section_title TEXT NOT NULL DEFAULT '',
		content_text TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_curriculum_segments_document ON curriculum_segments (document_id, grade_label)`,
	`CREATE TABLE IF NOT EXISTS grade_aliases (
		tenant_id TEXT NOT NULL,
		alias TEXT NOT NULL,
		normalized_value TEXT NOT NULL,
		PRIMARY KEY (tenant_id, alias)
	)`,
	`CREATE TABLE IF NOT EXISTS area_keywords (
		tenant_id TEXT NOT NULL,
		label TEXT NOT NULL,
		pattern TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, label)
	)`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		context TEXT NOT NULL,
		text TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_lookup ON prompts (tenant_id, context, active)`,
	`CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id TEXT PRIMARY KEY,
		ai_provider TEXT NOT NULL DEFAULT '',
		ai_model TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		study_plan_id TEXT,
		name TEXT NOT NULL,
		academic_year TEXT,
		jurisdiction TEXT,
		description TEXT,
		raw_text TEXT NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_study_plan ON plans (tenant_id, study_plan_id)`,
	`CREATE TABLE IF NOT EXISTS plan_documents (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES plans (id) ON DELETE CASCADE,
		tenant_id TEXT NOT NULL,
		document_id TEXT NOT NULL REFERENCES curriculum_documents (id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		original_filename TEXT,
		subject_hint TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS plan_items (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES plans (id) ON DELETE CASCADE,
		plan_document_id TEXT REFERENCES plan_documents (id) ON DELETE CASCADE,
		grade TEXT,
		normalized_grade TEXT,
		area TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_items_plan ON plan_items (plan_id, plan_document_id)`,
}

// Migrate creates the tables when missing. It is safe to run repeatedly.
func (d *DB) Migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	if d.dialect == DialectPostgres {
		ts = "TIMESTAMPTZ"
	}
	for i, stmt := range schema {
		if _, err := d.ExecContext(ctx, strings.ReplaceAll(stmt, "{{ts}}", ts)); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
