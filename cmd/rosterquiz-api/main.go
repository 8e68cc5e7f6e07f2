package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GameHubLabs/rosterquiz/backend/internal/auth"
	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"github.com/GameHubLabs/rosterquiz/backend/internal/config"
	"github.com/GameHubLabs/rosterquiz/backend/internal/database"
	"github.com/GameHubLabs/rosterquiz/backend/internal/jail"
	"github.com/GameHubLabs/rosterquiz/backend/internal/leaderboard"
	"github.com/GameHubLabs/rosterquiz/backend/internal/logging"
	"github.com/GameHubLabs/rosterquiz/backend/internal/quiz"
	"github.com/GameHubLabs/rosterquiz/backend/internal/roster"
	"github.com/GameHubLabs/rosterquiz/backend/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfgFile string

	scrapeFilters        string
	scrapeLimit          int
	scrapeReset          bool
	scrapeChargeContains string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rosterquiz-api",
		Short: "Roster quiz backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the inmate roster from the upstream records service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context())
		},
	}
	scrapeCmd.Flags().StringVar(&scrapeFilters, "filters", "", "Name filters, one letter each (blank means a through z)")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "Stop after this many records (0 means unlimited)")
	scrapeCmd.Flags().BoolVar(&scrapeReset, "reset", false, "Delete all stored inmates and charges before scraping")
	scrapeCmd.Flags().StringVar(&scrapeChargeContains, "charge-contains", "", "Keep only charges containing this text")
	rootCmd.AddCommand(scrapeCmd)

	classifyCmd := &cobra.Command{
		Use:   "classify [mode]",
		Short: "Rebuild the category indexes for a quiz mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.Context(), args[0])
		},
	}
	rootCmd.AddCommand(classifyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("jail-base-url", defaults.GetString("jail.base_url"), "Upstream jail records base URL")
	cmd.PersistentFlags().String("session-cookie-name", defaults.GetString("session.cookie_name"), "Quiz session cookie name")
	cmd.PersistentFlags().Int("session-ttl-minutes", defaults.GetInt("session.ttl_minutes"), "Quiz session TTL in minutes")
	cmd.PersistentFlags().String("session-signing-secret", "", "Session token signing secret (overrides env)")
	cmd.PersistentFlags().String("admin-token", "", "Admin bearer token (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "jail.base_url", "jail-base-url")
	bindFlag(cmd, "session.cookie_name", "session-cookie-name")
	bindFlag(cmd, "session.ttl_minutes", "session-ttl-minutes")
	bindFlag(cmd, "session.signing_secret", "session-signing-secret")
	bindFlag(cmd, "admin.token", "admin-token")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// openStack loads the configuration and opens the shared logger, database
// and upstream client. The returned cleanup closes the database.
func openStack() (config.AppConfig, *zap.Logger, *gorm.DB, *jail.Client, func(), error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, nil, nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, nil, nil, nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return config.AppConfig{}, nil, nil, nil, nil, err
	}

	jailClient, err := jail.NewClient(jail.ClientConfig{
		BaseURL: appConfig.JailBaseURL,
		Logger:  logger,
	})
	if err != nil {
		return config.AppConfig{}, nil, nil, nil, nil, err
	}

	cleanup := func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		logger.Sync() //nolint:errcheck
	}
	return appConfig, logger, db, jailClient, cleanup, nil
}

func runScrape(ctx context.Context) error {
	_, logger, db, jailClient, cleanup, err := openStack()
	if err != nil {
		return err
	}
	defer cleanup()

	scraper, err := roster.NewScraper(roster.ScraperConfig{
		Database: db,
		Source:   jailClient,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var filters []string
	for _, letter := range scrapeFilters {
		filters = append(filters, string(letter))
	}
	stats, err := scraper.Run(ctx, roster.ScrapeOptions{
		Filters:        filters,
		Limit:          scrapeLimit,
		Reset:          scrapeReset,
		ChargeContains: scrapeChargeContains,
	})
	if err != nil {
		return err
	}
	logger.Info("scrape finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated))
	return nil
}

func runClassify(ctx context.Context, rawMode string) error {
	_, logger, db, _, cleanup, err := openStack()
	if err != nil {
		return err
	}
	defer cleanup()

	mode, err := classify.ParseMode(rawMode)
	if err != nil {
		return err
	}
	classifier, err := classify.NewService(classify.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	result, err := classifier.Run(ctx, mode)
	if err != nil {
		return err
	}
	logger.Info("classification finished",
		zap.String("mode", result.Mode.String()),
		zap.Int("positive", result.Positive),
		zap.Int("negative", result.Negative))
	return nil
}

func runServer(ctx context.Context) error {
	appConfig, logger, db, jailClient, cleanup, err := openStack()
	if err != nil {
		return err
	}
	defer cleanup()

	scraper, err := roster.NewScraper(roster.ScraperConfig{
		Database: db,
		Source:   jailClient,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	classifier, err := classify.NewService(classify.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	quizService, err := quiz.NewService(quiz.ServiceConfig{
		Database: db,
		Index:    classifier,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	board, err := leaderboard.NewService(leaderboard.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	tokens, err := auth.NewSessionTokens(auth.SessionTokensConfig{
		SigningSecret: []byte(appConfig.SessionSigningSecret),
		CookieName:    appConfig.SessionCookieName,
		TokenTTL:      appConfig.SessionTTL,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Scraper:      scraper,
		Classifier:   classifier,
		QuizService:  quizService,
		Leaderboard:  board,
		SessionStore: quiz.NewStore(quiz.StoreConfig{TTL: appConfig.SessionTTL}),
		Tokens:       tokens,
		IDProvider:   quiz.NewUUIDProvider(),
		ImageSource:  jailClient,
		AdminToken:   appConfig.AdminToken,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
