package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prosumer-sim/internal/api/models"
	"prosumer-sim/internal/model"
	"prosumer-sim/internal/store"
)

// RunHandler serves stored runs.
type RunHandler struct {
	runs RunStore
}

func NewRunHandler(runs RunStore) *RunHandler {
	return &RunHandler{runs: runs}
}

func (h *RunHandler) enabled(c *gin.Context) bool {
	if h.runs != nil {
		return true
	}
	abortWithError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED",
		errors.New("run storage is disabled; set output.sqlite_path to enable it"))
	return false
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	rs, err := h.runs.Run(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}

	resp := models.RunResponse{
		ID:                   rs.ID,
		CreatedAt:            rs.CreatedAt,
		Start:                rs.Start,
		SlotMinutes:          int(rs.Slot.Minutes()),
		Steps:                rs.Steps,
		Battery:              rs.Battery,
		Gains:                map[string]string{},
		GridGains:            rs.GridGains.StringFixed(4),
		GridCost:             rs.GridCost.StringFixed(4),
		Net:                  rs.Net.StringFixed(4),
		FinalBatteryKWh:      rs.FinalBattery,
		Violations:           rs.ViolationCount,
		InfeasibleRebalances: rs.InfeasibleRebalances,
		OpenContracts:        rs.OpenContracts,
	}
	for _, m := range model.Markets {
		resp.Gains[m.String()] = rs.Gains[m].StringFixed(4)
	}
	c.JSON(http.StatusOK, resp)
}

// GetActions handles GET /api/v1/runs/:id/actions
func (h *RunHandler) GetActions(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	actions, err := h.runs.Actions(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": convertActions(actions)})
}
