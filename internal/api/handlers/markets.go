package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prosumer-sim/internal/api/models"
	"prosumer-sim/internal/model"
)

// MarketHandler lists the market rules the server simulates with.
type MarketHandler struct {
	markets model.MarketTable
}

func NewMarketHandler(markets model.MarketTable) *MarketHandler {
	return &MarketHandler{markets: markets}
}

// ListMarkets handles GET /api/v1/markets
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	out := make([]models.MarketInfo, 0, model.NumMarkets)
	for _, m := range model.Markets {
		spec := h.markets.Spec(m)
		info := models.MarketInfo{
			Code:             m.String(),
			Name:             spec.Name,
			GranularitySlots: spec.GranularitySlots,
		}
		if spec.GateClosure {
			info.GateClosure = formatTimeOfDay(spec.Closure)
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"markets": out})
}

func formatTimeOfDay(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
