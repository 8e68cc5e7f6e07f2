package server

import (
	"errors"
	"net/http"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"github.com/GameHubLabs/rosterquiz/backend/internal/quiz"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) handleQuizStart(c *gin.Context) {
	mode, err := classify.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_mode"})
		return
	}

	sessionID, err := h.idProvider.NewID()
	if err != nil {
		h.logger.Error("failed to issue session id", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_start_failed"})
		return
	}

	session, err := h.quizService.Start(c.Request.Context(), sessionID, mode)
	if errors.Is(err, quiz.ErrNoInmates) {
		c.JSON(http.StatusConflict, gin.H{"error": "no_inmates", "message": "inmate store is empty; scrape and classify first"})
		return
	}
	if err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_start_failed"})
		return
	}

	token, err := h.tokens.Issue(sessionID)
	if err != nil {
		h.logger.Error("failed to sign session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_start_failed"})
		return
	}

	h.sessionStore.Put(session)
	c.SetCookie(h.tokens.CookieName(), token, int(h.tokens.TokenTTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"mode":       mode.String(),
		"lives":      session.Lives,
		"streak":     session.Streak,
		"score":      session.Score,
		"multiplier": session.Multiplier,
	})
}

// sessionForMode loads the caller's session from the cookie and checks it
// belongs to the requested mode. A nil return means a response was already
// written.
func (h *httpHandler) sessionForMode(c *gin.Context) *quiz.Session {
	mode, err := classify.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_mode"})
		return nil
	}
	sessionID, err := h.tokens.SessionIDFromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no_session", "message": "start a game first"})
		return nil
	}
	session, ok := h.sessionStore.Get(sessionID)
	if !ok || session.Mode != mode {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no_session", "message": "start a game first"})
		return nil
	}
	return session
}

func (h *httpHandler) handleQuizRound(c *gin.Context) {
	session := h.sessionForMode(c)
	if session == nil {
		return
	}

	view, err := h.quizService.PresentRound(c.Request.Context(), session)
	h.sessionStore.Put(session)
	if errors.Is(err, quiz.ErrNoMoreRounds) || errors.Is(err, quiz.ErrSessionFinished) {
		c.JSON(http.StatusOK, gin.H{
			"game_over":   true,
			"final_score": session.FinalScore,
			"mode":        session.Mode.String(),
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to present round", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "round_failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

type choiceRequestPayload struct {
	Side string `json:"side"`
}

func (h *httpHandler) handleQuizChoose(c *gin.Context) {
	session := h.sessionForMode(c)
	if session == nil {
		return
	}

	var request choiceRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	side, err := quiz.ParseSide(request.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_side"})
		return
	}

	outcome, err := h.quizService.SubmitChoice(session, side)
	h.sessionStore.Put(session)
	if errors.Is(err, quiz.ErrNoCurrentPair) {
		c.JSON(http.StatusConflict, gin.H{"error": "no_round_presented", "hint": "fetch a round first"})
		return
	}
	if errors.Is(err, quiz.ErrSessionFinished) {
		c.JSON(http.StatusConflict, gin.H{"error": "game_over", "final_score": session.FinalScore})
		return
	}
	if err != nil {
		h.logger.Error("failed to evaluate choice", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "choice_failed"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}
