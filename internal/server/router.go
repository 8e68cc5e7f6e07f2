package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GameHubLabs/rosterquiz/backend/internal/auth"
	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"github.com/GameHubLabs/rosterquiz/backend/internal/jail"
	"github.com/GameHubLabs/rosterquiz/backend/internal/leaderboard"
	"github.com/GameHubLabs/rosterquiz/backend/internal/quiz"
	"github.com/GameHubLabs/rosterquiz/backend/internal/roster"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingScraper      = errors.New("scraper dependency required")
	errMissingClassifier   = errors.New("classifier dependency required")
	errMissingQuizService  = errors.New("quiz service dependency required")
	errMissingLeaderboard  = errors.New("leaderboard dependency required")
	errMissingSessionStore = errors.New("session store dependency required")
	errMissingTokens       = errors.New("session tokens dependency required")
	errMissingIDProvider   = errors.New("id provider dependency required")
	errMissingImageSource  = errors.New("image source dependency required")
	errMissingAdminToken   = errors.New("admin token required")
)

// ImageSource obtains a live image byte stream for a booking number, or
// reports that none is available.
type ImageSource interface {
	InmateDetails(ctx context.Context, bookingNumber string) (jail.Details, error)
	ResolveImage(ctx context.Context, field string) (jail.Image, bool)
}

// Dependencies wires the core services into the HTTP adapter.
type Dependencies struct {
	Scraper      *roster.Scraper
	Classifier   *classify.Service
	QuizService  *quiz.Service
	Leaderboard  *leaderboard.Service
	SessionStore *quiz.Store
	Tokens       *auth.SessionTokens
	IDProvider   quiz.IDProvider
	ImageSource  ImageSource
	AdminToken   string
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin router. The web layer is a thin adapter:
// every handler calls into the pipeline or reads session state and
// translates core errors into JSON responses.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Scraper == nil {
		return nil, errMissingScraper
	}
	if deps.Classifier == nil {
		return nil, errMissingClassifier
	}
	if deps.QuizService == nil {
		return nil, errMissingQuizService
	}
	if deps.Leaderboard == nil {
		return nil, errMissingLeaderboard
	}
	if deps.SessionStore == nil {
		return nil, errMissingSessionStore
	}
	if deps.Tokens == nil {
		return nil, errMissingTokens
	}
	if deps.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	if deps.ImageSource == nil {
		return nil, errMissingImageSource
	}
	if deps.AdminToken == "" {
		return nil, errMissingAdminToken
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{
		scraper:      deps.Scraper,
		classifier:   deps.Classifier,
		quizService:  deps.QuizService,
		leaderboard:  deps.Leaderboard,
		sessionStore: deps.SessionStore,
		tokens:       deps.Tokens,
		idProvider:   deps.IDProvider,
		imageSource:  deps.ImageSource,
		adminToken:   deps.AdminToken,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealthz)
	router.GET("/inmates/:booking/image", handler.handleInmateImage)
	router.GET("/leaderboard/:mode", handler.handleLeaderboardTop)
	router.POST("/leaderboard", handler.handleLeaderboardSubmit)

	quizGroup := router.Group("/quiz/:mode")
	quizGroup.POST("/start", handler.handleQuizStart)
	quizGroup.GET("/round", handler.handleQuizRound)
	quizGroup.POST("/choose", handler.handleQuizChoose)

	admin := router.Group("/admin")
	admin.Use(handler.authorizeAdmin)
	admin.POST("/scrape", handler.handleScrape)
	admin.POST("/classify/:mode", handler.handleClassify)

	return router, nil
}

type httpHandler struct {
	scraper      *roster.Scraper
	classifier   *classify.Service
	quizService  *quiz.Service
	leaderboard  *leaderboard.Service
	sessionStore *quiz.Store
	tokens       *auth.SessionTokens
	idProvider   quiz.IDProvider
	imageSource  ImageSource
	adminToken   string
	logger       *zap.Logger
}

func (h *httpHandler) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
