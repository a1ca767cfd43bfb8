package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// RequestContext stores the request id and the calling tenant on the request
// context. A missing tenant header selects the global scope.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)

		tenantID := uuid.Nil
		if raw := strings.TrimSpace(c.GetHeader(HeaderTenantID)); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				RespondError(c, http.StatusBadRequest, "INVALID_TENANT", errors.New("X-Tenant-ID must be a UUID"))
				c.Abort()
				return
			}
			tenantID = id
		}

		ctx := common.WithRequestID(c.Request.Context(), reqID)
		ctx = common.WithTenantID(ctx, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		ctx := c.Request.Context()

		fields := []any{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"req_id", common.RequestIDFromContext(ctx),
		}
		if tenantID := common.TenantIDFromContext(ctx); tenantID != uuid.Nil {
			fields = append(fields, "tenant_id", tenantID)
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, "error", last.Err)
		}

		switch {
		case status >= 500:
			log.Error("http.request", fields...)
		case status >= 400:
			log.Warn("http.request", fields...)
		default:
			log.Info("http.request", fields...)
		}
	}
}

func tenantOf(c *gin.Context) uuid.UUID {
	return common.TenantIDFromContext(c.Request.Context())
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New(name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
