package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

type templateHandler struct {
	templateService portssvc.TemplateSvcFacade
}

// RegisterTemplateRoutes registers the account template admin routes.
func RegisterTemplateRoutes(rg *gin.RouterGroup, templateService portssvc.TemplateSvcFacade) {
	h := &templateHandler{templateService: templateService}

	admin := rg.Group("/admin/templates")
	{
		admin.GET("", h.getTemplates)
		admin.POST("/reload", h.reloadTemplates)
	}
}

// getTemplates godoc
// @Summary Get the active account template set
// @Tags admin
// @Produce json
// @Success 200 {object} domain.TemplateSet
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /admin/templates [get]
func (h *templateHandler) getTemplates(c *gin.Context) {
	if _, _, ok := requireIdentity(c); !ok {
		return
	}
	c.JSON(http.StatusOK, h.templateService.Current())
}

// reloadTemplates godoc
// @Summary Reload account templates
// @Description Re-reads the template file. An invalid file leaves the active set in place.
// @Tags admin
// @Produce json
// @Success 200 {object} domain.TemplateSet
// @Failure 400 {object} map[string]string "Invalid template file"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /admin/templates/reload [post]
func (h *templateHandler) reloadTemplates(c *gin.Context) {
	if _, _, ok := requireIdentity(c); !ok {
		return
	}
	if err := h.templateService.Reload(); err != nil {
		respondError(c, err, "Failed to reload templates")
		return
	}
	c.JSON(http.StatusOK, h.templateService.Current())
}
