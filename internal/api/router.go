// Package api wires the HTTP routes of the simulation server.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prosumer-sim/internal/api/handlers"
	"prosumer-sim/internal/api/middleware"
	"prosumer-sim/internal/backtest"
	"prosumer-sim/internal/config"
	"prosumer-sim/internal/data"
)

// Deps are the collaborators the router needs. Runs may be nil.
type Deps struct {
	Config     *config.Config
	BatteryDir string
	Runs       handlers.RunStore
	Cache      *data.Cache
	Log        *zap.Logger
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	markets, err := d.Config.Markets()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))

	batteryHandler := handlers.NewBatteryHandler(d.BatteryDir, d.Log)
	simulateHandler := handlers.NewSimulateHandler(d.Config, backtest.New(d.Log), batteryHandler, d.Cache, d.Runs, d.Log)
	marketHandler := handlers.NewMarketHandler(markets)
	runHandler := handlers.NewRunHandler(d.Runs)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/markets", marketHandler.ListMarkets)
		api.GET("/batteries", batteryHandler.ListBatteries)
		api.GET("/datasets", handlers.ListDatasets(d.Config.Data))

		api.POST("/simulate", simulateHandler.Simulate)
		api.POST("/simulate/compare", simulateHandler.Compare)
		api.GET("/simulate/stream", simulateHandler.Stream)

		api.GET("/runs/:id", runHandler.GetRun)
		api.GET("/runs/:id/actions", runHandler.GetActions)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
			return
		}
		c.Status(http.StatusNotFound)
	})
	return router, nil
}
