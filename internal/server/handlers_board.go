package server

import (
	"errors"
	"net/http"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"github.com/GameHubLabs/rosterquiz/backend/internal/leaderboard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type submitScorePayload struct {
	Name string `json:"name"`
}

// handleLeaderboardSubmit records the caller's finished game. The score is
// taken from the server-side session, never from the request body.
func (h *httpHandler) handleLeaderboardSubmit(c *gin.Context) {
	sessionID, err := h.tokens.SessionIDFromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no_session", "message": "start a game first"})
		return
	}
	session, ok := h.sessionStore.Get(sessionID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no_session", "message": "start a game first"})
		return
	}
	if !session.Finished {
		c.JSON(http.StatusConflict, gin.H{"error": "game_not_over", "message": "finish the game before submitting a score"})
		return
	}

	var payload submitScorePayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	entry, err := h.leaderboard.Submit(c.Request.Context(), payload.Name, session.FinalScore, session.Mode)
	if errors.Is(err, leaderboard.ErrScoreNotPositive) {
		h.sessionStore.Delete(sessionID)
		c.JSON(http.StatusOK, gin.H{"recorded": false})
		return
	}
	if err != nil {
		h.logger.Error("failed to record leaderboard entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submit_failed"})
		return
	}

	// A recorded game is spent; the session cannot be submitted twice.
	h.sessionStore.Delete(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"recorded": true,
		"name":     entry.Name,
		"score":    entry.Score,
		"mode":     entry.Mode,
	})
}

type leaderboardEntryView struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func (h *httpHandler) handleLeaderboardTop(c *gin.Context) {
	// An unknown mode falls back to the child-abuse board rather than
	// erroring, so stale links still render a list.
	mode, err := classify.ParseMode(c.Param("mode"))
	if err != nil {
		mode = classify.ModeChild
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), mode)
	if err != nil {
		h.logger.Error("failed to list leaderboard", zap.String("mode", mode.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard_failed"})
		return
	}

	views := make([]leaderboardEntryView, 0, len(entries))
	for position, entry := range entries {
		views = append(views, leaderboardEntryView{
			Rank:  position + 1,
			Name:  entry.Name,
			Score: entry.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode.String(), "entries": views})
}

func (h *httpHandler) handleInmateImage(c *gin.Context) {
	booking := c.Param("booking")

	details, err := h.imageSource.InmateDetails(c.Request.Context(), booking)
	if err != nil {
		h.logger.Warn("image lookup failed", zap.String("booking", booking), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
		return
	}

	image, ok := h.imageSource.ResolveImage(c.Request.Context(), details.ImageField())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
		return
	}
	c.Data(http.StatusOK, image.ContentType(), image.Data)
}
