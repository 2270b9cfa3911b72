package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printpixel/core/internal/backup"
	"github.com/printpixel/core/internal/config"
	"github.com/printpixel/core/internal/event"
	eventdomain "github.com/printpixel/core/internal/event/domain"
	"github.com/printpixel/core/internal/notify"
	"github.com/printpixel/core/internal/observability/logger"
	obsmetrics "github.com/printpixel/core/internal/observability/metrics"
	"github.com/printpixel/core/internal/settings"
	settingsdomain "github.com/printpixel/core/internal/settings/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	event.Module,
	settings.Module,
	backup.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(httpMetrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	EventSvc    eventdomain.Service
	SettingsSvc settingsdomain.Service
	BackupSvc   *backup.Service
	Broker      *notify.Broker
	Events      *config.EventsConfigHolder
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	eventSvc    eventdomain.Service
	settingsSvc settingsdomain.Service
	backupSvc   *backup.Service
	broker      *notify.Broker
	events      *config.EventsConfigHolder
	metrics     *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		eventSvc:    p.EventSvc,
		settingsSvc: p.SettingsSvc,
		backupSvc:   p.BackupSvc,
		broker:      p.Broker,
		events:      p.Events,
		metrics:     p.Metrics,
	}

	svc.registerAPIRoutes()
	svc.registerUIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	database := api.Group("/database")
	{
		database.GET("/init", s.DatabaseInit)
		database.POST("/init", s.DatabaseInit)
		database.POST("/commit", s.CommitEvent)
		database.POST("/query", s.QueryEvents)
		database.GET("/query", s.QueryEventsGet)
		database.GET("/recent", s.RecentEvents)
		database.POST("/delete", s.DeleteEvent)
		database.POST("/events/:id/status", s.UpdateEventStatus)
		database.GET("/stats", s.DatabaseStats)

		database.GET("/getSettings", s.GetSettings)
		database.POST("/saveSetting", s.SaveSetting)

		database.POST("/backup", s.CreateBackup)
		database.GET("/backups", s.ListBackups)
		database.POST("/restore", s.RestoreBackup)
		database.GET("/export", s.ExportStore)
		database.POST("/import", s.ImportStore)
	}
}

func (s *Server) registerUIRoutes() {
	if s.cfg.StaticDir == "" {
		return
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if fileExists(s.cfg.StaticDir, c.Request.URL.Path) {
			c.File(filepath.Join(s.cfg.StaticDir, filepath.Clean(c.Request.URL.Path)))
			return
		}

		// SPA fallback
		c.File(filepath.Join(s.cfg.StaticDir, "index.html"))
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
