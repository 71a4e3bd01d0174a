package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-research-desk/internal/config"
	"ai-research-desk/internal/controller"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/internal/repository/memory"
	"ai-research-desk/internal/service"
	"ai-research-desk/internal/telemetry"
	"ai-research-desk/internal/websocket"
	"ai-research-desk/pkg/embedding"
	"ai-research-desk/pkg/llm"
	"ai-research-desk/pkg/llm/factory"
	"ai-research-desk/pkg/rag/index"
	"ai-research-desk/pkg/rag/ingest"
	"ai-research-desk/pkg/rag/search"
)

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	SystemController controller.ISystemController

	// Background services (exposed for main.go to run)
	Orchestrator     service.IOrchestratorService
	TelemetrySampler *telemetry.Sampler
	WebSocketHub     *websocket.Hub

	// Command surface, used by main.go for the startup scan
	Publisher service.IPublisherService

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	publisherService := service.NewPublisherService(pubSub, cfg.App.InboundTopic, cfg.App.EventsTopic)

	// 3. AI backends
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	providerFactory := func(model string) (llm.LLMProvider, error) {
		return factory.NewLLMProvider(cfg.Ai.LLMProvider, model, cfg.Ai.OllamaBaseURL)
	}
	// Fail fast if the default model cannot be constructed at all.
	if _, err := providerFactory(cfg.Ai.ChatModel); err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.ChatModel)

	// 4. Retrieval
	chunkIndex := index.New()
	searcher := search.NewSearcher(embeddingProvider, chunkIndex, sysLogger)
	scanner := ingest.NewScanner(
		ingest.NewFileSource(),
		embeddingProvider,
		chunkIndex,
		publisherService,
		sysLogger,
		cfg.Retrieval.ChunkSize,
		cfg.Retrieval.ChunkOverlap,
	)

	// 5. Session storage
	sessionRepo := memory.NewSessionRepository()

	// 6. Orchestrator
	orchestrator := service.NewOrchestratorService(
		pubSub,
		publisherService,
		sessionRepo,
		searcher,
		scanner,
		providerFactory,
		cfg,
		sysLogger,
	)

	// 7. Telemetry
	sampler := telemetry.NewSampler(cfg.Telemetry.Command, cfg.Telemetry.Interval, publisherService, sysLogger)

	// 8. WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(pubSub, cfg.App.EventsTopic, wsLogger)

	// 9. Controllers
	chatController := controller.NewChatController(orchestrator, publisherService, wsHub, sysLogger)
	systemController := controller.NewSystemController(orchestrator, publisherService)

	return &Container{
		ChatController:   chatController,
		SystemController: systemController,
		Orchestrator:     orchestrator,
		TelemetrySampler: sampler,
		WebSocketHub:     wsHub,
		Publisher:        publisherService,
		Logger:           sysLogger,
	}
}

// Start launches the background services on ctx.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Orchestrator.Run(ctx); err != nil {
		return err
	}
	if err := c.WebSocketHub.Run(ctx); err != nil {
		return err
	}
	go func() {
		if err := c.TelemetrySampler.Run(ctx); err != nil && ctx.Err() == nil {
			c.Logger.Error("Bootstrap", "Telemetry sampler stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}
