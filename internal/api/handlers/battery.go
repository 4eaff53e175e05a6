package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prosumer-sim/internal/api/models"
	"prosumer-sim/internal/config"
)

var ErrUnknownPreset = errors.New("unknown battery preset")

// BatteryHandler handles battery-related requests
type BatteryHandler struct {
	batteryDir string
	log        *zap.Logger
}

// NewBatteryHandler serves presets from dir. An empty dir resolves to
// BATTERY_DIR or ./examples/batteries.
func NewBatteryHandler(dir string, log *zap.Logger) *BatteryHandler {
	if dir == "" {
		dir = os.Getenv("BATTERY_DIR")
	}
	if dir == "" {
		dir = filepath.Join("examples", "batteries")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	log.Info("battery presets", zap.String("dir", dir))
	return &BatteryHandler{batteryDir: dir, log: log}
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	entries, err := os.ReadDir(h.batteryDir)
	if err != nil {
		h.log.Warn("read battery directory", zap.String("dir", h.batteryDir), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.batteryDir, entry.Name())
		info, err := h.loadBatteryInfo(path, entry.Name())
		if err != nil {
			h.log.Warn("skip battery preset", zap.String("file", path), zap.Error(err))
			continue
		}
		batteries = append(batteries, *info)
	}

	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}

// Preset loads the preset with the given id (file name without .yaml).
func (h *BatteryHandler) Preset(id string) (config.BatteryConfig, error) {
	id = strings.TrimSuffix(filepath.Base(id), ".yaml")
	if id == "" || id == "." || id == ".." {
		return config.BatteryConfig{}, ErrUnknownPreset
	}
	b, err := config.LoadBatteryFile(filepath.Join(h.batteryDir, id+".yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return config.BatteryConfig{}, ErrUnknownPreset
	}
	if err != nil {
		return config.BatteryConfig{}, err
	}
	if b.Name == "" {
		b.Name = id
	}
	return b, nil
}

func (h *BatteryHandler) loadBatteryInfo(path, filename string) (*models.BatteryInfo, error) {
	b, err := config.LoadBatteryFile(path)
	if err != nil {
		return nil, err
	}

	// Keep the full filename without extension as the ID
	id := strings.TrimSuffix(filename, ".yaml")

	name := b.Name
	if name == "" {
		name = id
	}

	return &models.BatteryInfo{
		ID:   id,
		Name: name,
		File: path,
		Specs: models.BatterySpecs{
			MinKWh:     b.MinKWh,
			MaxKWh:     b.MaxKWh,
			InitialKWh: b.InitialKWh,
		},
	}, nil
}
