package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/antoniostano/mira/internal/brain"
	"github.com/antoniostano/mira/internal/config"
	"github.com/antoniostano/mira/internal/httpapi"
	"github.com/antoniostano/mira/internal/memory"
	"github.com/antoniostano/mira/internal/observability"
	"github.com/antoniostano/mira/internal/pipeline"
	"github.com/antoniostano/mira/internal/prompt"
	"github.com/antoniostano/mira/internal/retrieval"
	"github.com/antoniostano/mira/internal/safety"
	"github.com/antoniostano/mira/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer memoryStore.Close()

	memoryMgr := memory.NewManager(memoryStore, memory.Options{
		ShortTermCapacity: cfg.ShortTermCapacity,
	})

	searcher, err := retrieval.NewChromemSearcher(cfg.KnowledgePath)
	if err != nil {
		log.Fatalf("knowledge index init failed: %v", err)
	}
	if err := retrieval.SeedIfEmpty(ctx, searcher); err != nil {
		log.Fatalf("knowledge seeding failed: %v", err)
	}
	retriever := retrieval.NewRetriever(searcher, retrieval.Options{
		MinScore: cfg.RetrievalMinScore,
		Timeout:  cfg.RetrievalTimeout,
	})

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:    cfg.ModelAdapterMode,
		HTTPURL: cfg.ModelHTTPURL,
		Timeout: cfg.ModelTimeout,
	})
	if err != nil {
		log.Fatalf("model adapter init failed: %v", err)
	}

	classifier := safety.NewClassifier(safety.DefaultPolicy())
	assembler := prompt.NewAssembler(prompt.Options{
		MaxPromptChars:      cfg.MaxPromptChars,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	})

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		// Expiry discards any unconsented in-memory buffer.
		memoryMgr.EndSession(s.ID)
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	turns := pipeline.New(classifier, memoryMgr, retriever, assembler, adapter, metrics, pipeline.Options{
		TopK:          cfg.RetrievalTopK,
		SnippetBudget: cfg.SnippetBudget,
		ModelTimeout:  cfg.ModelTimeout,
		MaxTokens:     cfg.ModelMaxTokens,
		Temperature:   cfg.ModelTemperature,
	})

	api := httpapi.New(cfg, sessions, memoryMgr, turns, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 30*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
