// Package handlers implements the HTTP API of the campaign studio.
package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/campaign-studio/config"
	"github.com/AndrewDonelson/campaign-studio/internal/briefs"
	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/generator"
	"github.com/AndrewDonelson/campaign-studio/internal/services"
)

// Handlers groups every API handler
type Handlers struct {
	Dashboard *DashboardHandler
	Gallery   *GalleryHandler
	Brief     *BriefHandler
	Upload    *UploadHandler
	Generate  *GenerateHandler
	Asset     *AssetHandler
	Language  *LanguageHandler
	Progress  *ProgressHandler

	devMode bool
}

// New builds the handlers on top of db. Files live under cfg.StoragePath.
func New(db *sql.DB, gen *generator.Generator, broadcaster *services.ProgressBroadcaster, cfg *config.Config) *Handlers {
	store := briefs.NewStore(db, cfg.StoragePath)
	return &Handlers{
		Dashboard: NewDashboardHandler(db),
		Gallery:   NewGalleryHandler(db),
		Brief:     NewBriefHandler(db, store, cfg.StoragePath),
		Upload:    NewUploadHandler(store),
		Generate:  NewGenerateHandler(db, gen, broadcaster, cfg),
		Asset:     NewAssetHandler(db, cfg.StoragePath),
		Language:  NewLanguageHandler(db),
		Progress:  NewProgressHandler(broadcaster, database.NewRunRepository(db)),
		devMode:   gen.DevMode(),
	}
}

// Register mounts the API under APIPrefix, plus /health and the /media files
func (h *Handlers) Register(router *gin.Engine, mediaRoot string) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "campaign-studio",
			"dev_mode": h.devMode,
		})
	})
	router.Static("/media", mediaRoot)

	api := router.Group(APIPrefix)
	{
		api.GET("/dashboard", h.Dashboard.GetDashboard)
		api.GET("/gallery", h.Gallery.GetGallery)

		briefRoutes := api.Group("/briefs")
		{
			briefRoutes.GET("", h.Brief.GetAll)
			briefRoutes.GET("/new", h.Brief.New)
			briefRoutes.POST("", h.Brief.Create)
			briefRoutes.POST("/upload", h.Upload.UploadBrief)
			briefRoutes.GET("/:id", h.Brief.GetByID)
			briefRoutes.GET("/:id/status", h.Brief.Status)
			briefRoutes.GET("/:id/download", h.Brief.Download)
			briefRoutes.GET("/:id/runs", h.Generate.GetRuns)
			briefRoutes.Any("/:id/generate", h.Generate.Generate)
		}

		api.GET("/runs/:id", h.Generate.GetRun)
		api.GET("/assets/:id", h.Asset.GetByID)

		api.GET("/languages", h.Language.GetLanguages)
		api.GET("/demo-briefs", h.Language.GetDemoBriefs)
		api.GET("/demo-briefs/:id", h.Language.GetDemoBrief)

		progress := api.Group("/progress")
		{
			progress.GET("/stream", h.Progress.StreamProgress)
			progress.GET("/stream/:id", h.Progress.StreamRunProgress)
			progress.GET("/stats", h.Progress.GetStats)
		}
	}
}
