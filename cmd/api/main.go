package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"

	"gasplan/internal/api/handlers"
	"gasplan/internal/api/middleware"
	"gasplan/internal/batch"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.CORS())
	router.Use(middleware.Recovery())

	scenarioHandler := handlers.NewScenarioHandler(batch.NewRunner(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/scenarios/run", scenarioHandler.RunScenario)
		api.POST("/scenarios/batch", scenarioHandler.RunBatch)
		api.GET("/modules", handlers.ListModules)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Info("starting API server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
