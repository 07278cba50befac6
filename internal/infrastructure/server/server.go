package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/config"
	"github.com/bookhaven/bookhaven-api/internal/database/bunstore"
	"github.com/bookhaven/bookhaven-api/internal/database/sqlite"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/bookhaven/bookhaven-api/internal/infrastructure/llm"
	"github.com/bookhaven/bookhaven-api/internal/infrastructure/resilience"
	"github.com/bookhaven/bookhaven-api/internal/infrastructure/transport"
	httpserver "github.com/bookhaven/bookhaven-api/internal/interface/http"
	"github.com/bookhaven/bookhaven-api/internal/usecase/recommend"
	"github.com/bookhaven/bookhaven-api/internal/usecase/review"
	"github.com/bookhaven/bookhaven-api/internal/usecase/search"
	"github.com/bookhaven/bookhaven-api/internal/usecase/user"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	dbConn     *sql.DB
}

func New(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
	}
}

func (s *Server) Run() error {
	ctx := context.Background()

	// ==========================================
	// Initialize Dependencies (Dependency Injection)
	// ==========================================

	httpClient := transport.NewHTTPClient(s.cfg.DefaultTimeout, s.cfg.LogLevel)

	localClient := llm.NewLocalOllamaClient(s.cfg.OllamaHost, s.cfg.OllamaModel, httpClient)

	var cloudClient repository.LLMClient
	if s.cfg.UseLocalOnlyLLM {
		log.Println("[System] BH_USE_LOCAL_ONLY_LLM is true. Using Local Ollama for all tasks.")
		cloudClient = localClient
	} else {
		geminiClient, err := llm.NewGeminiClient(ctx, s.cfg.GeminiAPIKey, s.cfg.GeminiModel, s.cfg.LLMTemperature, s.cfg.LLMMaxTokens)
		if err != nil {
			return err
		}
		defer func() { _ = geminiClient.Close() }()
		cloudClient = geminiClient
	}

	// The cloud provider sits behind a circuit breaker so a degraded provider
	// fails fast into the popular-books fallback.
	breaker := resilience.NewCircuitBreaker(s.cfg.BreakerFailThreshold, s.cfg.BreakerOpenTimeout)
	guardedCloud := resilience.NewGuardedLLMClient(cloudClient, breaker)

	llmRouter := llm.NewRouter(localClient, guardedCloud)
	log.Printf("[System] LLM Router initialized (Cloud: %s | Local: %s)", guardedCloud.Name(), localClient.Name())

	// Primary store (books, users, reviews, history)
	var err error
	s.dbConn, err = sql.Open(sqliteshim.ShimName, s.cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.dbConn.Close(); closeErr != nil {
			log.Printf("[Warning] Failed to close database: %v", closeErr)
		}
	}()

	store, err := bunstore.NewBunStore(s.dbConn, sqlitedialect.New())
	if err != nil {
		return err
	}

	// Search cache and stats live in their own SQLite database.
	cacheStore, err := sqlite.NewCacheStore(s.cfg.CacheDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = cacheStore.Close() }()

	// Search pipeline
	queryRouter := search.NewQueryRouter(s.cfg.MinSearchLength)
	keywordResolver := search.NewKeywordResolver(store, s.cfg.MaxResults)
	aiResolver := search.NewAIResolver(llmRouter)
	cache := search.NewCache(cacheStore, s.cfg.SearchCacheTTL)
	fallback := search.NewFallback(store, s.cfg.PopularBooksLimit)

	resolver := search.NewResolver(queryRouter, keywordResolver, aiResolver, cache, fallback, store, cacheStore, s.cfg.PersistAIBooks)

	// Surrounding services
	recommender := recommend.NewRecommender(store, store, store, aiResolver, fallback, s.cfg.PopularBooksLimit)
	reviewService := review.NewService(store, store)
	userService := user.NewService(store, store, store)

	// ==========================================
	// Initialize and Start HTTP Server
	// ==========================================

	apiServer := httpserver.NewServer(resolver, recommender, reviewService, userService, store, cacheStore, s.cfg.PopularBooksLimit, s.cfg.DefaultTimeout)
	handler := apiServer.RegisterRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.APIPort),
		Handler: handler,
	}

	// Listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("[System] Starting REST API Server on :%d", s.cfg.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Error] HTTP server failed: %v", err)
		}
	}()

	<-stop
	log.Println("[System] Shutdown signal received. Draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Error] HTTP shutdown error: %v", err)
	}

	log.Println("[System] Server stopped gracefully.")
	return nil
}
