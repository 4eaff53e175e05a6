package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prosumer-sim/internal/config"
)

// DatasetInfo describes one dataset source a simulation can replay.
type DatasetInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

// ListDatasets returns a handler for GET /api/v1/datasets.
func ListDatasets(dc config.DataConfig) gin.HandlerFunc {
	files := dc.DayAheadPath != "" && dc.IntradayAuctionPath != "" &&
		dc.IntradayContinuousPath != "" && dc.LoadPath != "" && dc.PVPath != ""
	datasets := []DatasetInfo{
		{
			Type:        "synthetic",
			Description: "Deterministic generated PV, load and prices; pick a seed for variety.",
			Available:   true,
		},
		{
			Type:        "files",
			Description: "Price, load and PV series configured on the server.",
			Available:   files,
		},
		{
			Type:        "inline",
			Description: "Series posted with the request, already sliced from the simulation start.",
			Available:   true,
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"datasets": datasets})
	}
}
