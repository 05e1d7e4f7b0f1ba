package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/internal/chapter"
	"mangatrack/internal/events"
	"mangatrack/internal/manga"
	"mangatrack/internal/mapping"
	"mangatrack/internal/notify"
	"mangatrack/internal/source"
	"mangatrack/internal/tracker"
	"mangatrack/pkg/database"
	"mangatrack/pkg/utils"
)

func main() {
	utils.SetupLogging()

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Count(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Count(),
		})
	})

	// Catalog
	mangaRepo := manga.NewRepo(db)
	sourceRepo := source.NewRepo(db)
	mappingRepo := mapping.NewRepo(db)
	chapterRepo := chapter.NewRepo(db)

	manga.NewHandler(mangaRepo, chapterRepo).RegisterRoutes(router.Group("/mangas"))
	source.NewHandler(sourceRepo).RegisterRoutes(router.Group("/sources"))
	mapping.NewHandler(mappingRepo).RegisterRoutes(router.Group("/mappings"))
	chapter.NewHandler(chapterRepo).RegisterRoutes(router.Group("/chapters"))

	// Tracking
	trackerCfg := utils.LoadTrackerConfig()
	notifier := notify.NewDiscord(utils.LoadNotifyConfig())
	svc := tracker.NewService(
		tracker.NewTable(),
		mappingRepo,
		chapterRepo,
		mangaRepo,
		notifier,
		hub,
		func() (browser.Engine, error) {
			return browser.NewStaticEngine(trackerCfg.NavTimeout), nil
		},
		trackerCfg,
	)
	tracker.NewHandler(svc).RegisterRoutes(router.Group("/tracking"))

	addr := os.Getenv("MANGATRACK_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP API server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logrus.Infof("shutdown signal received: %s", sig)
	case err := <-errCh:
		logrus.Errorf("server error: %v", err)
	}

	logrus.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("http shutdown error: %v", err)
	}
	logrus.Info("server stopped")
}
