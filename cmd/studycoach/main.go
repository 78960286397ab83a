package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "github.com/mind-engage/studycoach/internal/api/http"
	"github.com/mind-engage/studycoach/internal/auth"
	"github.com/mind-engage/studycoach/internal/cache"
	"github.com/mind-engage/studycoach/internal/chat"
	"github.com/mind-engage/studycoach/internal/config"
	"github.com/mind-engage/studycoach/internal/coursework"
	"github.com/mind-engage/studycoach/internal/createai"
	"github.com/mind-engage/studycoach/internal/db"
	"github.com/mind-engage/studycoach/internal/eventlog"
	"github.com/mind-engage/studycoach/internal/grading"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/storage"
	"github.com/mind-engage/studycoach/internal/studyaid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode, cfg.LogLevel, logger.WithHashSalt(cfg.LogHashSalt))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", "error", err.Error())
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthTokenTTL)
	users := auth.NewUsers(dbh)
	if err := users.EnsureAdmin(openCtx, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	var google *auth.GoogleSSO
	if cfg.EnableGoogleAuth {
		google = auth.NewGoogleSSO(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
			AllowedHD:    cfg.GoogleAllowedHD,
			PublicURL:    cfg.PublicURL,
		}, authSvc, users, log)
	}

	// --- Cache: redis when configured, process memory otherwise ---
	var c cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rdb, err := cache.DialRedis(openCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		c = cache.NewRedis(rdb, "studycoach:")
		log.Info("using redis cache", "addr", cfg.RedisAddr)
	}

	// --- Services ---
	blobs, err := storage.NewFSStore(cfg.BlobBasePath, "/assets")
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	events := eventlog.NewRepo(dbh)
	items := coursework.NewSQLStore(dbh, grading.NewDefaultGrader())
	ai := createai.New(createai.Config{
		URL:           cfg.CreateAIURL,
		Token:         cfg.CreateAIToken,
		ModelProvider: cfg.CreateAIModelProvider,
		ModelName:     cfg.CreateAIModelName,
		Timeout:       cfg.CreateAITimeout,
		MaxRetries:    cfg.CreateAIMaxRetries,
	}, log)
	if !ai.Configured() {
		log.Warn("CreateAI is not configured; study aids and chat will answer 503")
	}
	insightsSvc := studyaid.NewInsightsService(items, c, cfg.InsightsCacheTTL, log)

	handler := api.NewRouter(api.Deps{
		Log:             log,
		Auth:            authSvc,
		Users:           users,
		Google:          google,
		EnableLocalAuth: cfg.EnableLocalAuth,
		EnableGuestAuth: cfg.EnableGuestAuth,
		AllowClaimRole:  !cfg.Online(),
		Items:           items,
		Insights:        insightsSvc,
		StudyAids:       studyaid.NewGenerator(ai, insightsSvc, blobs, events, log),
		Chat:            chat.NewService(chat.NewSQLStore(dbh), ai, chat.NewSessionTracker(c), events, log),
		Events:          events,
		Blobs:           blobs,
		DB:              dbh,
		CORSOrigins:     cfg.CORSOrigins,
		RequestTimeout:  cfg.CreateAITimeout + 30*time.Second,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			"addr", cfg.HTTPAddr,
			"mode", string(cfg.Mode),
			"db", string(driver),
			"cors", strings.Join(cfg.CORSOrigins, ","))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
