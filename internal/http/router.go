package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/estatedesk/backend/internal/config"
	"github.com/estatedesk/backend/internal/db"
	"github.com/estatedesk/backend/internal/http/handlers"
	"github.com/estatedesk/backend/internal/http/middleware"
	"github.com/estatedesk/backend/internal/service"

	_ "github.com/estatedesk/backend/docs"
)

func Router(cfg config.Config, store *db.Store, engine *service.Engine, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Engine:    engine,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/assets", h.AssetsList)
		api.GET("/assets/:id", h.AssetDetails)
		api.GET("/tasks", h.TasksList)
		api.GET("/work-orders", h.WorkOrdersList)
		api.GET("/work-orders/:id", h.WorkOrderDetails)
		api.GET("/runs/latest", h.RunsLatest)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/import", h.Import)
		admin.POST("/maintenance/run", h.MaintenanceRun)
		admin.POST("/complaints/:id/convert", h.ConvertComplaint)
		admin.POST("/work-orders/:id/complete", h.CompleteWorkOrder)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
