package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"forklift-assistant/internal/analytics"
	"forklift-assistant/internal/api"
	"forklift-assistant/internal/auth"
	"forklift-assistant/internal/config"
	"forklift-assistant/internal/conversation"
	"forklift-assistant/internal/diagnosis"
	"forklift-assistant/internal/llm"
	"forklift-assistant/internal/logging"
	"forklift-assistant/internal/records"
	"forklift-assistant/internal/retrieval"
	"forklift-assistant/internal/scheduler"
	"forklift-assistant/internal/telegram"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Warn(".env file not loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
	logger.Info("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	recStore, err := records.Open(ctx, records.Options{
		Driver:          cfg.RecordStore,
		MongoURI:        cfg.MongoURI,
		MongoDatabase:   cfg.MongoDatabase,
		MongoCollection: cfg.MongoCollection,
		SQLitePath:      cfg.SQLitePath,
		PostgresDSN:     cfg.PostgresDSN,
		FilePath:        cfg.RecordsFilePath,
	})
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recStore.Close(closeCtx); err != nil {
			logger.Warn("closing record store", zap.Error(err))
		}
	}()
	logger.Info("record store ready", zap.String("driver", cfg.RecordStore))

	convStore, err := conversation.OpenStore(ctx, conversation.StoreOptions{
		Driver:        cfg.ConversationStore,
		BoltPath:      cfg.BoltPath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisTTL:      cfg.RedisTTL,
	})
	if err != nil {
		return fmt.Errorf("open conversation store: %w", err)
	}
	defer func() {
		if err := convStore.Close(); err != nil {
			logger.Warn("closing conversation store", zap.Error(err))
		}
	}()

	llmClient, err := newLLMClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	var allowRepo auth.Repository
	if cfg.AllowlistFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.AllowlistFilePath)
		if err != nil {
			logger.Warn("allowlist file unavailable, using ALLOWED_USERS only", zap.Error(err))
		} else {
			allowRepo = repo
		}
	}
	authSvc, err := auth.NewWithRepo(allowRepo, cfg.AdminUserID, cfg.AllowedUsers)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	if authSvc.Open() {
		logger.Warn("allowlist is empty, every Telegram user may use the bot")
	}

	generator := diagnosis.NewGenerator(llmClient, cfg.GenerationTimeout, cfg.MinSolutionLength, logger)
	retriever := retrieval.New(recStore, retrieval.Options{
		Limit:         cfg.HistoryLimit,
		Threshold:     cfg.SimilarityThreshold,
		TextWeight:    cfg.TextWeight,
		KeywordWeight: cfg.KeywordWeight,
	})
	tracker := conversation.NewTracker(convStore, generator, retriever, recStore,
		conversation.Options{EnrichLimit: cfg.EnrichLimit}, logger)

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return fmt.Errorf("load report timezone: %w", err)
	}
	reporter := analytics.NewReporter(recStore, loc)

	if cfg.APIAddr != "" {
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := api.New(recStore, retriever, reporter, logger)
		go func() {
			if err := srv.Run(ctx, cfg.APIAddr); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	botAPI, err := telegram.Connect(ctx, cfg.TelegramBotToken, cfg.ConnectAttempts, cfg.ConnectDelay, logger)
	if err != nil {
		return err
	}
	bot := telegram.New(botAPI, tracker, authSvc, telegram.Options{
		ParseMode:        cfg.MessageParseMode,
		MaxMessageLength: cfg.MaxMessageLength,
		Workers:          cfg.Workers,
		SendRate:         cfg.SendRatePerSecond,
		PollTimeout:      cfg.PollTimeout,
	}, logger)
	bot.SetReporter(reporter)

	sched := scheduler.New(cfg.ReportCron, loc, logger)
	sched.SetReportFunction(func(ctx context.Context) error {
		if cfg.AdminUserID == 0 {
			return nil
		}
		text, err := reporter.Report(ctx)
		if err != nil {
			return err
		}
		bot.Notify(ctx, cfg.AdminUserID, text)
		return nil
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	bot.Start(ctx)
	return nil
}

// newLLMClient resolves provider and model, letting the override files win.
func newLLMClient(cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	provider := cfg.LLMProvider
	if s := readTrim(cfg.ProviderFilePath); s != "" {
		provider = config.LLMProvider(s)
	}
	model := cfg.OpenAIModel
	if s := readTrim(cfg.ModelFilePath); s != "" {
		model = s
	}
	logger.Info("llm configured",
		zap.String("provider", string(provider)),
		zap.String("model", model),
		zap.Strings("fallback_models", cfg.OpenAIFallbackModels))
	return llm.NewFactory(cfg).CreateWithFallback(provider, model, cfg.OpenAIFallbackModels)
}

func readTrim(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
