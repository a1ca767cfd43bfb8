package llm

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Source hands out the generator configured for a tenant.
type Source interface {
	ForTenant(ctx context.Context, tenantID uuid.UUID) Generator
}

// OverrideSource looks up a tenant's provider and model preferences.
type OverrideSource func(ctx context.Context, tenantID uuid.UUID) (Override, error)

// ForTenant ignores the tenant; a bare client uses the global configuration.
func (c *Client) ForTenant(context.Context, uuid.UUID) Generator { return c }

// TenantRouter applies stored tenant preferences on top of a base client.
type TenantRouter struct {
	base      *Client
	overrides OverrideSource
	logger    *slog.Logger
}

func NewTenantRouter(base *Client, overrides OverrideSource, logger *slog.Logger) *TenantRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantRouter{base: base, overrides: overrides, logger: logger}
}

// ForTenant falls back to the global configuration when preferences cannot be read.
func (r *TenantRouter) ForTenant(ctx context.Context, tenantID uuid.UUID) Generator {
	if r.overrides == nil || tenantID == uuid.Nil {
		return r.base
	}
	o, err := r.overrides(ctx, tenantID)
	if err != nil {
		r.logger.Warn("llm.tenant_override.unavailable", "tenant_id", tenantID, "error", err)
		return r.base
	}
	return r.base.For(o)
}
