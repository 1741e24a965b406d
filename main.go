package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/gogo/pagegen/internal/adapter/assistant"
	"github.com/xiaot623/gogo/pagegen/internal/adapter/llm"
	"github.com/xiaot623/gogo/pagegen/internal/config"
	"github.com/xiaot623/gogo/pagegen/internal/repository"
	"github.com/xiaot623/gogo/pagegen/internal/service"
	handler "github.com/xiaot623/gogo/pagegen/internal/transport/http"
	"github.com/xiaot623/gogo/pagegen/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	log.Printf("Starting pagegen...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("LLM URL: %s", cfg.LLMBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize completion client
	llmClient := llm.NewCompletionClient(cfg.LLMBaseURL, cfg.LLMTimeout)

	// Initialize run orchestrator
	var runner *service.RunOrchestrator
	if cfg.AssistantURL != "" {
		assistantClient := assistant.NewClient(cfg.AssistantURL, cfg.AssistantTimeout)
		var assistantConfig *assistant.ConfigCache
		if cfg.AssistantID != "" {
			assistantConfig = assistant.StaticConfig(assistant.Config{AssistantID: cfg.AssistantID, Model: cfg.AssistantModel})
		} else {
			log.Printf("INFO: ASSISTANT_ID not set, assistant configuration will be fetched on first run")
			assistantConfig = assistant.NewConfigCache(assistant.ConfigLoaderFor(assistantClient, ""))
		}
		runner = service.NewRunOrchestrator(assistantClient, assistantConfig, cfg.RunPollInterval, cfg.RunMaxPolls)
		log.Printf("Assistant URL: %s (poll every %s, at most %d polls)", cfg.AssistantURL, cfg.RunPollInterval, cfg.RunMaxPolls)
	} else {
		log.Printf("INFO: ASSISTANT_URL not set, run protocol disabled")
	}

	// Initialize policy engine
	ctx := context.Background()
	policyContent := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		content, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			log.Fatalf("Failed to read policy file: %v", err)
		}
		policyContent = string(content)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, llmClient, runner, cfg, policyEngine)

	// Create Echo server
	server := handler.NewServer(svc, cfg)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down pagegen...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("pagegen stopped")
}
