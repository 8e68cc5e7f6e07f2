package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"github.com/GameHubLabs/rosterquiz/backend/internal/roster"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) authorizeAdmin(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

type scrapeRequestPayload struct {
	Filters        string `json:"filters"`
	Limit          int    `json:"limit"`
	Reset          bool   `json:"reset"`
	ChargeContains string `json:"charge_contains"`
}

func (h *httpHandler) handleScrape(c *gin.Context) {
	// An empty body runs a full default scrape.
	var request scrapeRequestPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	limit := request.Limit
	if limit < 0 {
		limit = 0
	}

	stats, err := h.scraper.Run(c.Request.Context(), roster.ScrapeOptions{
		Filters:        expandFilters(request.Filters),
		Limit:          limit,
		Reset:          request.Reset,
		ChargeContains: request.ChargeContains,
	})
	if err != nil {
		h.logger.Error("scrape failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scrape_failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// expandFilters mirrors the admin form rules: blank means the full
// alphabet, a single letter means that letter through z, anything else is
// reduced to its unique alphabetic characters.
func expandFilters(raw string) []string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil
	}
	if len(raw) == 1 && raw[0] >= 'a' && raw[0] <= 'z' {
		filters := make([]string, 0, 'z'-raw[0]+1)
		for letter := raw[0]; letter <= 'z'; letter++ {
			filters = append(filters, string(letter))
		}
		return filters
	}
	seen := make(map[byte]bool)
	filters := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		letter := raw[i]
		if letter < 'a' || letter > 'z' || seen[letter] {
			continue
		}
		seen[letter] = true
		filters = append(filters, string(letter))
	}
	return filters
}

func (h *httpHandler) handleClassify(c *gin.Context) {
	mode, err := classify.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_mode"})
		return
	}

	result, err := h.classifier.Run(c.Request.Context(), mode)
	if errors.Is(err, classify.ErrNothingToClassify) {
		c.JSON(http.StatusConflict, gin.H{"error": "nothing_to_classify", "message": "inmate store is empty; run a scrape first"})
		return
	}
	if err != nil {
		h.logger.Error("classification failed", zap.String("mode", mode.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification_failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
