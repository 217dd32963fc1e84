package controllers

import (
	"context"
	"net/http"
	"time"

	"shiftbook-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB *gorm.DB
}

func (hc *HealthController) Healthz(c *gin.Context) {
	sqlDB, err := hc.DB.DB()
	if err != nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
