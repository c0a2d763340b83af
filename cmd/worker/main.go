// Command worker runs the verification engine's job consumer loop: it
// dequeues individual and business verification jobs and drives each
// through its workflow state machine until a terminal result is reached.
// Grounded on the teacher's cmd/oracle worker-loop entry point, adapted to
// the verification domain's two-workflow/UBO-fan-out engine instead of a
// single job kind.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/verifyengine/core/infrastructure/blobstore"
	"github.com/verifyengine/core/infrastructure/config"
	"github.com/verifyengine/core/infrastructure/database/postgres"
	"github.com/verifyengine/core/infrastructure/llm"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/metrics"
	"github.com/verifyengine/core/infrastructure/providers"
	"github.com/verifyengine/core/infrastructure/queue"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/agents/business"
	"github.com/verifyengine/core/internal/agents/compilation"
	"github.com/verifyengine/core/internal/agents/individual"
	"github.com/verifyengine/core/internal/workflow"
)

func main() {
	cfg := config.Load()
	logger := logging.New("verification-worker", cfg.LogLevel, cfg.LogFormat)

	store, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("CRITICAL: connect postgres: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	q := queue.New(redisClient, cfg.QueueName)

	blobs := newBlobStore(cfg)

	llmClient := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.ModelID)
	llmPool := llm.NewBoundedPool(llmClient, cfg.LLMConcurrency, 0)

	records, err := providers.NewMysqlExternalRecordStore(cfg.ExternalDBDSN, logger)
	if err != nil {
		log.Fatalf("CRITICAL: connect external record store: %v", err)
	}
	idProvider := providers.NewPersonaIdProvider(cfg.PersonaAPIKey, blobs)
	fraudProvider := providers.NewSiftFraudProvider(cfg.SiftAPIKey)
	registryProvider := providers.NewHTTPRegistryProvider(config.GetEnv("BUSINESS_REGISTRY_BASE_URL", ""))
	sanctionsProvider := providers.NewOfacSanctionsProvider()

	workflow.SetUboJoinTiming(cfg.UBOPollInterval, cfg.UBOJoinDeadline)

	individualWorkflow := workflow.NewIndividualWorkflow(
		store, logger,
		compilation.NewDataAcquisitionAgent(records, idProvider, fraudProvider, store),
		individualAgents(sanctionsProvider),
		compilation.NewResultCompilationAgent(store, llmPool),
	)

	var dispatcher workflow.Dispatcher = q
	businessWorkflow := workflow.NewBusinessWorkflow(
		store, logger, dispatcher,
		compilation.NewBusinessDataAcquisitionAgent(records, idProvider, registryProvider, store),
		businessAgents(),
		compilation.NewBusinessResultCompilationAgent(store, llmPool),
	)

	if metrics.Enabled() {
		metrics.Init("verification-worker")
	}

	engine := workflow.NewEngine(q, logger, individualWorkflow, businessWorkflow)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reaper, err := workflow.NewReaper(store, logger, config.GetEnvDuration("REAPER_STALE_AFTER", 2*time.Hour), config.GetEnv("REAPER_SCHEDULE", "@every 5m"))
	if err != nil {
		log.Fatalf("CRITICAL: configure reaper: %v", err)
	}
	reaper.Start(ctx)

	logger.Info(ctx, "worker starting", map[string]interface{}{"queue": cfg.QueueName, "concurrency": cfg.WorkerConcurrency})
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("engine run failed: %v", err)
	}
	logger.Info(ctx, "worker stopped", nil)
}

func newBlobStore(cfg config.Config) blobstore.BlobStore {
	if cfg.AWSS3Bucket == "" {
		return blobstore.NewInMemoryStore()
	}
	store, err := blobstore.NewS3Store(context.Background(), blobstore.S3StoreConfig{
		Bucket:      cfg.AWSS3Bucket,
		Region:      cfg.AWSRegion,
		EndpointURL: cfg.AWSEndpointURL,
	})
	if err != nil {
		log.Fatalf("CRITICAL: configure S3 blob store: %v", err)
	}
	return store
}

func individualAgents(sanctions providers.SanctionsProvider) []agent.Agent {
	return []agent.Agent{
		individual.NewInitialDiligenceAgent(),
		individual.NewGovtIdVerificationAgent(),
		individual.NewIdSelfieVerificationAgent(),
		individual.NewIdCheckAgent(),
		individual.NewAamvaVerificationAgent(),
		individual.NewEmailPhoneIpVerificationAgent(),
		individual.NewOfacVerificationAgent(sanctions),
		individual.NewSiftVerificationAgent(),
		individual.NewLoginActivitiesAgent(),
		individual.NewPaymentBehaviorAgent(),
	}
}

func businessAgents() []agent.Agent {
	return []agent.Agent{
		business.NewNormalDiligenceAgent(),
		business.NewSosFilingsAgent(),
		business.NewArticlesIncorporationAgent(),
		business.NewEinLetterAgent(),
		business.NewIrsMatchAgent(),
	}
}
