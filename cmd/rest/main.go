package main

import (
	"context"
	"log"

	"ai-research-desk/internal/bootstrap"
	"ai-research-desk/internal/config"
	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/server"
	"ai-research-desk/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	ctx := context.Background()
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Failed to start background services: %v", err)
	}

	// 4. Index the research library on boot, if one is configured
	if cfg.Retrieval.ResearchDir != "" {
		log.Printf("Background: Queueing startup scan of %s", cfg.Retrieval.ResearchDir)
		if err := container.Publisher.PublishCommand(dto.Command{Type: dto.CommandAddDocument}); err != nil {
			log.Printf("Background: Startup scan failed to queue: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
