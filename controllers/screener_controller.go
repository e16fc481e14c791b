package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crypto_analysis_backend/services"
	"crypto_analysis_backend/services/screener"
)

// ScreenerController handles asset screening requests
type ScreenerController struct {
	screener *screener.QuoteScreener
}

// NewScreenerController creates a new screener controller
func NewScreenerController(store *services.InMemoryQuoteStore) *ScreenerController {
	return &ScreenerController{
		screener: screener.NewQuoteScreener(store),
	}
}

// Screen applies filters and returns matching assets
// POST /api/v1/screener/screen
func (sc *ScreenerController) Screen(c *gin.Context) {
	var filter screener.Filter

	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := sc.screener.Screen(&filter)

	c.JSON(http.StatusOK, gin.H{
		"data":  results,
		"total": len(results),
	})
}

// GetPresets returns predefined screener configurations
// GET /api/v1/screener/presets
func (sc *ScreenerController) GetPresets(c *gin.Context) {
	presets := sc.screener.GetPresetScreens()
	c.JSON(http.StatusOK, gin.H{"data": presets})
}

// RunPreset runs a predefined screener
// GET /api/v1/screener/presets/:id
func (sc *ScreenerController) RunPreset(c *gin.Context) {
	presetID := c.Param("id")

	presets := sc.screener.GetPresetScreens()
	var selectedFilter screener.Filter
	found := false

	for _, preset := range presets {
		if preset["id"] == presetID {
			if f, ok := preset["filter"].(screener.Filter); ok {
				selectedFilter = f
				found = true
				break
			}
		}
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preset not found"})
		return
	}

	if limit := c.Query("limit"); limit != "" {
		if limitNum, err := strconv.Atoi(limit); err == nil && limitNum > 0 {
			selectedFilter.Limit = limitNum
		}
	}

	results := sc.screener.Screen(&selectedFilter)

	c.JSON(http.StatusOK, gin.H{
		"data":      results,
		"total":     len(results),
		"preset_id": presetID,
	})
}
