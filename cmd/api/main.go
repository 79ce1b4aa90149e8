package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"real-estate-site/internal/config"
	"real-estate-site/internal/contact"
	"real-estate-site/internal/database"
	"real-estate-site/internal/handlers"
	"real-estate-site/internal/i18n"
	"real-estate-site/internal/logging"
	"real-estate-site/internal/ratelimit"
	"real-estate-site/internal/scheduler"
	"real-estate-site/internal/search"
	"real-estate-site/internal/source"
)

func main() {
	// Load configuration
	configPath := config.GetEnv("CONFIG_PATH", "config/site.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	logger, closeLogger, err := logging.Setup(appConfig.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLogger()
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath, "source", appConfig.Source.Kind)

	if err := run(appConfig, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(appConfig *config.Config, logger *slog.Logger) error {
	var searchClient *search.SearchClient
	meiliCfg := appConfig.Search.Meilisearch
	if meiliCfg.Enabled || appConfig.Source.Kind == "meilisearch" {
		searchClient = search.NewSearchClient(meiliCfg.Host, meiliCfg.APIKey, meiliCfg.Index)
		if err := searchClient.InitIndex(); err != nil {
			logger.Warn("failed to initialize search index", "err", err)
		}
	}

	src, breaker, closeSource, err := buildSource(appConfig, searchClient, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	catalog := source.NewCatalog(src, logger.With("component", "catalog"))
	startCtx, cancel := context.WithTimeout(context.Background(), appConfig.Source.GetTimeout()+5*time.Second)
	if err := catalog.Refresh(startCtx); err != nil {
		logger.Warn("initial catalog load failed, serving an empty catalog until the next refresh", "err", err)
	}
	cancel()

	var afterRefresh []scheduler.Job
	if searchClient != nil && meiliCfg.ReindexOnRefresh && appConfig.Source.Kind != "meilisearch" {
		afterRefresh = append(afterRefresh, func(context.Context) error {
			_, err := searchClient.IndexProperties(catalog.Properties())
			return err
		})
	}
	appScheduler := scheduler.NewScheduler(catalog, appConfig.Source.RefreshCron,
		appConfig.Source.GetTimeout()+5*time.Second, logger.With("component", "scheduler"), afterRefresh...)
	if err := appScheduler.Start(); err != nil {
		return err
	}
	defer appScheduler.Stop()

	sink, closeSink, err := buildSink(appConfig.Contact)
	if err != nil {
		return err
	}
	defer closeSink()
	logger.Info("contact delivery configured", "sink", sink.Name())

	dicts, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("failed to load dictionaries: %w", err)
	}

	rl := appConfig.Contact.RateLimit
	limiter := ratelimit.NewLimiter(ratelimit.Limits{
		PerMinute: rl.RequestsPerMinute,
		PerHour:   rl.RequestsPerHour,
		PerDay:    rl.RequestsPerDay,
	}, rl.Enabled)
	logger.Info("contact rate limiter initialized",
		"per_minute", rl.RequestsPerMinute,
		"per_hour", rl.RequestsPerHour,
		"per_day", rl.RequestsPerDay,
		"enabled", rl.Enabled)

	var indexer handlers.Indexer
	if searchClient != nil {
		indexer = searchClient
	}

	adminHandler := handlers.NewAdminHandler(catalog, appScheduler, indexer, logger.With("component", "admin"))
	if breaker != nil {
		adminHandler.WithBreaker(breaker)
	}

	// Setup Gin router
	gin.SetMode(appConfig.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(logger.With("component", "http")))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", handlers.TraceIDHeader},
		ExposeHeaders:    []string{handlers.TraceIDHeader},
		AllowCredentials: true,
	}))

	handlers.RegisterRoutes(r,
		handlers.NewSiteHandler(catalog, dicts, appConfig.Filters.PageSize, appConfig.Filters.FeaturedCount, logger),
		handlers.NewContactHandler(contact.NewService(sink, logger.With("component", "contact")), limiter, logger),
		adminHandler,
	)

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", appConfig.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(ctx)
}

// buildSource opens the listing source named by the configuration. The
// breaker is only set for the api kind.
func buildSource(appConfig *config.Config, searchClient *search.SearchClient, logger *slog.Logger) (source.Source, *source.Breaker, func() error, error) {
	noop := func() error { return nil }
	srcCfg := appConfig.Source

	switch srcCfg.Kind {
	case "", "static":
		logger.Info("using static dataset", "file", srcCfg.File)
		return source.NewStatic(srcCfg.File), nil, noop, nil

	case "api":
		logger.Info("using listings API", "url", srcCfg.APIURL)
		breaker := source.NewBreaker(srcCfg.FailureThreshold, srcCfg.GetResetTimeout(), logger.With("component", "breaker"))
		return source.NewAPI(srcCfg.APIURL, srcCfg.GetTimeout(), breaker), breaker, noop, nil

	case "mysql":
		mysqlCfg := appConfig.Database.MySQL
		logger.Info("using MySQL with GORM", "host", mysqlCfg.Host, "database", mysqlCfg.Database)
		gormDB, err := database.NewGormDB(
			mysqlCfg.Host,
			strconv.Itoa(mysqlCfg.Port),
			mysqlCfg.User,
			mysqlCfg.Password,
			mysqlCfg.Database,
		)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		return gormDB, nil, gormDB.Close, nil

	case "postgres":
		pgCfg := appConfig.Database.Postgres
		logger.Info("using PostgreSQL", "host", pgCfg.Host, "database", pgCfg.Database)
		db, err := database.NewDB(
			pgCfg.Host,
			strconv.Itoa(pgCfg.Port),
			pgCfg.User,
			pgCfg.Password,
			pgCfg.Database,
			pgCfg.SSLMode,
		)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil, db.Close, nil

	case "meilisearch":
		logger.Info("using Meilisearch documents", "host", appConfig.Search.Meilisearch.Host)
		return searchClient, nil, noop, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown source kind %q", srcCfg.Kind)
}

// buildSink creates the contact delivery channel named by the configuration.
func buildSink(cfg config.ContactConfig) (contact.Sink, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sink {
	case "", "http":
		return contact.NewHTTPSink(cfg.APIURL, cfg.GetTimeout()), noop, nil

	case "amqp":
		sink, closeFn, err := contact.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, nil, err
		}
		return sink, closeFn, nil

	case "sendgrid":
		sg := cfg.Sendgrid
		if sg.APIKey == "" || sg.FromEmail == "" || sg.ToEmail == "" {
			return nil, nil, errors.New("sendgrid sink needs api_key, from_email and to_email")
		}
		client := contact.NewSendgridClient(sg.APIKey)
		return contact.NewSendgridSink(client, sg.FromName, sg.FromEmail, sg.ToEmail, sg.Sandbox), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown contact sink %q", cfg.Sink)
}
