package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatsController struct {
	statsService service.StatsService
}

func NewStatsController(statsService service.StatsService) *StatsController {
	return &StatsController{
		statsService: statsService,
	}
}

// Dashboard returns aggregate figures for the management panel (admin only)
// GET /api/v1/stats/dashboard
func (ctrl *StatsController) Dashboard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	estadisticas, err := ctrl.statsService.Dashboard(c.Request.Context(), actor)
	if err != nil {
		log.Warn("Dashboard build failed", map[string]interface{}{
			"user_id": actor.UserID,
			"error":   err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, estadisticas)
}

// ExportXLSX serves the decided-solicitudes report as a spreadsheet (admin only)
// GET /api/v1/stats/export
func (ctrl *StatsController) ExportXLSX(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	data, err := ctrl.statsService.ExportXLSX(c.Request.Context(), actor)
	if err != nil {
		log.Error("Spreadsheet export failed", err, map[string]interface{}{
			"user_id": actor.UserID,
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Spreadsheet exported", map[string]interface{}{
		"user_id": actor.UserID,
		"bytes":   len(data),
	})

	filename := fmt.Sprintf("solicitudes-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
