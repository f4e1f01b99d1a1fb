package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/maintenance"
	"github.com/mmdatafocus/estate_backend/middlewares"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// dedup-service serves the read-only duplicate reports. Deleting stays with the unit-dedup tool.
func main() {
	port := os.Getenv("DEDUP_SERVICE_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	corsCfg, err := corsConfig()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "cors"}).Fatal(err)
	}
	r := newRouter(logger, middlewares.RedisSessionLookup, corsCfg)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	if err := config.ConnectDatabaseWithRetry(); err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Error(err)
	}
	if err := config.ConnectRedisWithRetry(sigCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "redis"}).Error(err)
	}
	defer config.CloseRedis()

	if db := config.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func newRouter(logger *logrus.Logger, sessions middlewares.SessionLookup, corsCfg cors.Config) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(func(c *gin.Context) {
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.Use(cors.New(corsCfg))
	r.Use(middlewares.RequestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middlewares.SessionMiddleware(sessions))

	maintenance.RegisterRoutes(r, maintenance.UnitStoreFactory(), logger)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

var errNoAllowedOrigins = errors.New("CORS_ALLOWED_ORIGINS is required when GO_ENV=production")

// corsConfig allows every origin outside production. In production the origins must be listed,
// since cors.New panics when no origin is allowed.
func corsConfig() (cors.Config, error) {
	cfg := cors.DefaultConfig()
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		origins := splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
		if len(origins) == 0 {
			return cors.Config{}, errNoAllowedOrigins
		}
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "OPTIONS"}
	cfg.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", middlewares.HeaderCorrelationId)
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.HeaderCorrelationId)
	cfg.AllowCredentials = true
	return cfg, nil
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
