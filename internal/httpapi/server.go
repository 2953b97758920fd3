// Package httpapi exposes the FFE workflow over HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/catalog"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Workflow is the service surface served over HTTP.
type Workflow interface {
	CreateTemplate(ctx context.Context, name, description string) (domain.Template, domain.Result, error)
	AddSection(ctx context.Context, templateID, name string) (domain.Section, domain.Result, error)
	AddItem(ctx context.Context, sectionID string, def core.ItemDefinition, options []domain.LogicOption) (domain.TemplateItem, domain.Result, error)
	UpdateItem(ctx context.Context, itemID string, def core.ItemDefinition, options []domain.LogicOption) (domain.TemplateItem, domain.Result, error)
	GetTemplate(ctx context.Context, templateID string) (domain.TemplateDetail, error)
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	Instantiate(ctx context.Context, roomID, templateID string) (domain.RoomState, domain.Result, error)
	SetVisibility(ctx context.Context, itemID string, visible bool) (domain.RoomItem, domain.Result, error)
	ApplyLogicOption(ctx context.Context, parentID, optionID string) ([]domain.RoomItem, domain.Result, error)
	ClearLogicOption(ctx context.Context, parentID string) (domain.RoomItem, domain.Result, error)
	ListExpansions(ctx context.Context, parentID string) ([]domain.Expansion, error)
	SetStatus(ctx context.Context, itemID string, status domain.Status) (domain.RoomItem, domain.Result, error)
	SetNotes(ctx context.Context, itemID, notes string) (domain.RoomItem, domain.Result, error)
	GetRoomState(ctx context.Context, roomID string, includeHidden bool) (domain.RoomState, error)
	ComputeProgress(ctx context.Context, roomID string) (domain.Progress, error)
}

// Archive is the template archive surface.
type Archive interface {
	Export(ctx context.Context, templateID string) (string, error)
	Import(ctx context.Context, key string) (domain.TemplateDetail, error)
	List(ctx context.Context, templateID string) ([]catalog.Entry, error)
}

var (
	_ Workflow = (*core.Service)(nil)
	_ Archive  = (*catalog.Catalog)(nil)
)

// Config wires the router.
type Config struct {
	Workflow Workflow
	// Archive is optional; archive routes are not registered without it.
	Archive Archive
	Auth    *Authenticator
	Logger  core.Logger
	// Metrics is served at /metrics when set.
	Metrics     http.Handler
	CORSOrigins []string
}

type server struct {
	workflow Workflow
	archive  Archive
	logger   core.Logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NewRouter builds the gin engine with CORS, request logging, health,
// metrics, and the authenticated /api/v1 routes.
func NewRouter(cfg Config) *gin.Engine {
	s := &server{workflow: cfg.Workflow, archive: cfg.Archive, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := router.Group("/api/v1")
	api.Use(cfg.Auth.RequireActor())

	api.GET("/templates", s.listTemplates)
	api.POST("/templates", s.createTemplate)
	api.GET("/templates/:templateID", s.getTemplate)
	api.POST("/templates/:templateID/sections", s.addSection)
	api.POST("/sections/:sectionID/items", s.addItem)
	api.PUT("/template-items/:itemID", s.updateItem)

	if s.archive != nil {
		api.GET("/templates/:templateID/archives", s.listArchives)
		api.POST("/templates/:templateID/archives", s.exportTemplate)
		api.POST("/archives/import", s.importArchive)
	}

	api.POST("/rooms/:roomID/instantiate", s.instantiate)
	api.GET("/rooms/:roomID", s.roomState)
	api.GET("/rooms/:roomID/progress", s.progress)

	api.PUT("/room-items/:itemID/visibility", s.setVisibility)
	api.PUT("/room-items/:itemID/logic-option", s.applyLogicOption)
	api.DELETE("/room-items/:itemID/logic-option", s.clearLogicOption)
	api.GET("/room-items/:itemID/expansions", s.listExpansions)
	api.PUT("/room-items/:itemID/status", s.setStatus)
	api.PUT("/room-items/:itemID/notes", s.setNotes)

	return router
}

// RequestLogger logs method, route, status and duration of each request.
func RequestLogger(logger core.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if actor := c.GetString(actorKey); actor != "" {
			fields = append(fields, "actor_id", actor)
		}
		switch {
		case status >= 500:
			logger.Error("http request", fields...)
		case status >= 400:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}
