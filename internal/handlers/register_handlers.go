package handlers

import (
	"net/http"

	"github.com/SscSPs/fleet_ledger/cmd/docs"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/SscSPs/fleet_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes mounts the ledger API. Every /api/v1 route is authenticated
// first so tenant-scoped middleware in extra (rate limiting, analytics) sees
// the caller's identity.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	extra ...gin.HandlerFunc,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.StoreDriver})
	})

	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer)}, extra...)
	v1 := r.Group("/api/v1", chain...)
	RegisterEventRoutes(v1, services.Ledger, services.Automation)
	RegisterEntryRoutes(v1, services.Ledger, services.Posting)
	RegisterDepreciationRoutes(v1, services.Depreciation)
	RegisterRuleRoutes(v1, services.Automation)
	RegisterReconciliationRoutes(v1, services.Reconciliation)
	RegisterTemplateRoutes(v1, services.Templates)

	// no swagger in prod
	if !cfg.IsProduction {
		docs.SwaggerInfo.BasePath = "/api/v1"
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
