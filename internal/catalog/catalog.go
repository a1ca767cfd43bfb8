package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/entity"
)

// Store reads catalog rows for exactly one scope; tenant uuid.Nil is the global scope.
type Store interface {
	GradeAliases(ctx context.Context, tenantID uuid.UUID) ([]entity.GradeAlias, error)
	AreaKeywords(ctx context.Context, tenantID uuid.UUID) ([]entity.AreaKeyword, error)
	// ActivePrompt returns the most recently updated active prompt, or nil when none exists.
	ActivePrompt(ctx context.Context, promptContext string, tenantID uuid.UUID) (*entity.Prompt, error)
}

// Catalog serves merged grade aliases, area keywords and prompts. Built-in defaults
// form the base layer, global rows override them and tenant rows override both.
// Merged results are cached per (kind, tenant) until Invalidate is called.
type Catalog struct {
	store  Store
	logger *slog.Logger

	mu       sync.RWMutex
	gen      uint64
	aliases  map[uuid.UUID]map[string]string
	patterns map[uuid.UUID][]AreaPattern
	prompts  map[promptKey]string

	group singleflight.Group
}

type promptKey struct {
	context string
	tenant  uuid.UUID
}

func New(store Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{store: store, logger: logger}
	c.reset()
	return c
}

func (c *Catalog) reset() {
	c.aliases = map[uuid.UUID]map[string]string{}
	c.patterns = map[uuid.UUID][]AreaPattern{}
	c.prompts = map[promptKey]string{}
}

// Invalidate drops every cached entry. Call it after any catalog write.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.reset()
	c.mu.Unlock()
	c.logger.Info("catalog.invalidated")
}

// ResolveGradeAlias normalizes a free-text grade label for tenant.
func (c *Catalog) ResolveGradeAlias(ctx context.Context, raw string, tenantID uuid.UUID) (string, bool) {
	return NormalizeGradeLabel(raw, c.gradeAliases(ctx, tenantID))
}

// AreaKeywordPatterns returns the compiled patterns in catalog order: defaults,
// then global rows, then tenant rows.
func (c *Catalog) AreaKeywordPatterns(ctx context.Context, tenantID uuid.UUID) []AreaPattern {
	c.mu.RLock()
	cached, ok := c.patterns[tenantID]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return cached
	}

	v, _, _ := c.group.Do(fmt.Sprintf("areas:%s:%d", tenantID, gen), func() (any, error) {
		rows, complete := c.loadAreaKeywords(ctx, tenantID)
		merged := MergeAreaKeywords(DefaultAreaKeywords(), rows)
		compiled := compilePatterns(merged, c.logger)
		if complete {
			c.mu.Lock()
			if c.gen == gen {
				c.patterns[tenantID] = compiled
			}
			c.mu.Unlock()
		}
		return compiled, nil
	})
	return v.([]AreaPattern)
}

// MatchArea returns the label of the first pattern matching text.
func (c *Catalog) MatchArea(ctx context.Context, text string, tenantID uuid.UUID) (string, bool) {
	return MatchArea(c.AreaKeywordPatterns(ctx, tenantID), text)
}

// ActivePrompt returns the tenant's active prompt for promptContext, falling back
// to the global prompt and finally to the built-in text.
func (c *Catalog) ActivePrompt(ctx context.Context, promptContext string, tenantID uuid.UUID) string {
	key := promptKey{context: promptContext, tenant: tenantID}
	c.mu.RLock()
	cached, ok := c.prompts[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return cached
	}

	v, _, _ := c.group.Do(fmt.Sprintf("prompt:%s:%s:%d", promptContext, tenantID, gen), func() (any, error) {
		text, complete := c.loadPrompt(ctx, promptContext, tenantID)
		if complete {
			c.mu.Lock()
			if c.gen == gen {
				c.prompts[key] = text
			}
			c.mu.Unlock()
		}
		return text, nil
	})
	return v.(string)
}

func (c *Catalog) gradeAliases(ctx context.Context, tenantID uuid.UUID) map[string]string {
	c.mu.RLock()
	cached, ok := c.aliases[tenantID]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return cached
	}

	v, _, _ := c.group.Do(fmt.Sprintf("aliases:%s:%d", tenantID, gen), func() (any, error) {
		merged := DefaultGradeAliases()
		complete := true
		for _, scope := range scopes(tenantID) {
			rows, err := c.storeGradeAliases(ctx, scope)
			if err != nil {
				c.logger.Warn("catalog.grade_aliases.load_failed", "tenant_id", scope, "error", err)
				complete = false
				continue
			}
			for _, row := range rows {
				merged[normalizeAliasKey(row.Alias)] = row.NormalizedValue
			}
		}
		if complete {
			c.mu.Lock()
			if c.gen == gen {
				c.aliases[tenantID] = merged
			}
			c.mu.Unlock()
		}
		return merged, nil
	})
	return v.(map[string]string)
}

func (c *Catalog) storeGradeAliases(ctx context.Context, scope uuid.UUID) ([]entity.GradeAlias, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.GradeAliases(ctx, scope)
}

func (c *Catalog) loadAreaKeywords(ctx context.Context, tenantID uuid.UUID) ([]entity.AreaKeyword, bool) {
	if c.store == nil {
		return nil, true
	}
	var rows []entity.AreaKeyword
	complete := true
	for _, scope := range scopes(tenantID) {
		scoped, err := c.store.AreaKeywords(ctx, scope)
		if err != nil {
			c.logger.Warn("catalog.area_keywords.load_failed", "tenant_id", scope, "error", err)
			complete = false
			continue
		}
		rows = append(rows, scoped...)
	}
	return rows, complete
}

func (c *Catalog) loadPrompt(ctx context.Context, promptContext string, tenantID uuid.UUID) (string, bool) {
	if c.store == nil {
		return DefaultPrompt(promptContext), true
	}
	complete := true
	// Most specific scope first.
	order := scopes(tenantID)
	for i := len(order) - 1; i >= 0; i-- {
		p, err := c.store.ActivePrompt(ctx, promptContext, order[i])
		if err != nil {
			c.logger.Warn("catalog.prompt.load_failed", "context", promptContext, "tenant_id", order[i], "error", err)
			complete = false
			continue
		}
		if p != nil && p.Text != "" {
			return p.Text, complete
		}
	}
	return DefaultPrompt(promptContext), complete
}

// scopes lists the catalog scopes for tenant, least specific first.
func scopes(tenantID uuid.UUID) []uuid.UUID {
	if tenantID == uuid.Nil {
		return []uuid.UUID{uuid.Nil}
	}
	return []uuid.UUID{uuid.Nil, tenantID}
}
