package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaiNageswarS/go-api-boot/cloud"
	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/relaydesk/relay/appconfig"
	"github.com/relaydesk/relay/assistant"
	"github.com/relaydesk/relay/db"
	"github.com/relaydesk/relay/files"
	"github.com/relaydesk/relay/search"
	"github.com/relaydesk/relay/services"
	"github.com/relaydesk/relay/transport"
	"github.com/relaydesk/relay/turn"
	"go.uber.org/zap"
)

func main() {
	dotenv.LoadEnv()

	// load config file
	ccfgg := &appconfig.AppConfig{}
	err := config.LoadConfig("config.ini", ccfgg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	ccfgg.ApplyDefaults()

	if ccfgg.AssistantID == "" {
		logger.Fatal("assistant_id is not configured")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Fatal("OPENAI_API_KEY is not set")
	}

	az := cloud.ProvideAzure(&ccfgg.BootConfig)

	mongoClient := odm.ProvideMongoClient()

	rdb := redis.NewClient(&redis.Options{Addr: ccfgg.RedisAddr})

	ctx := getCancellableContext()

	if err := az.EnsureBucket(ctx, ccfgg.FileBucket); err != nil {
		logger.Fatal("Failed to ensure file bucket", zap.String("bucket", ccfgg.FileBucket), zap.Error(err))
	}

	backend := assistant.NewOpenAIClient(apiKey, transport.Default())

	var aug *search.Augmenter
	if tavily, err := search.NewTavilyClient(transport.Default()); err != nil {
		logger.Info("Web search disabled", zap.Error(err))
	} else {
		aug = search.NewAugmenter(tavily)
	}

	usage := db.NewUsageTracker(rdb, ccfgg.StorageSoftLimitBytes, func(tenant string, totalBytes int64) {
		// Retention runs out of band; the pipeline only raises the flag.
		logger.Info("Cleanup requested", zap.String("tenant", tenant), zap.Int64("totalBytes", totalBytes))
	})

	fileRepo := db.ProvideFileRepo(mongoClient, ccfgg.Tenant)
	resolver := files.NewResolver(backend, az, fileRepo, usage, ccfgg.FileBucket, ccfgg.Tenant)

	coordinator := turn.NewCoordinator(backend, augmenterOrNil(aug), resolver, turn.Config{
		AgentID: ccfgg.AssistantID,
		Standard: turn.PollBudget{
			MaxAttempts: ccfgg.PollMaxAttempts,
			Interval:    time.Duration(ccfgg.PollIntervalMs) * time.Millisecond,
		},
		Search: turn.PollBudget{
			MaxAttempts: ccfgg.SearchPollAttempts,
			Interval:    time.Duration(ccfgg.SearchPollIntervalMs) * time.Millisecond,
		},
		SubmitTolerance: 30 * time.Second,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	services.ProvideTurnService(coordinator).Register(r)
	services.ProvideFileService(fileRepo).Register(r)

	srv := &http.Server{Addr: ccfgg.HTTPPort, Handler: r}

	go func() {
		logger.Info("Serving", zap.String("addr", ccfgg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown incomplete", zap.Error(err))
	}
}

// augmenterOrNil keeps the coordinator's nil check honest: a typed nil
// pointer inside a non-nil interface would defeat it.
func augmenterOrNil(aug *search.Augmenter) turn.Augmenter {
	if aug == nil {
		return nil
	}
	return aug
}

func getCancellableContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	return ctx
}
