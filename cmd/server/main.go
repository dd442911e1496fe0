package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-chatbot/internal/api"
	"clinic-chatbot/internal/config"
	"clinic-chatbot/internal/core"
	"clinic-chatbot/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for doctor directory seeding
	seedFile := flag.String("seed", "", "Seed the doctor directory from the given JSON file and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Handle directory seeding if flag is set
	if *seedFile != "" {
		log.Printf("Seeding doctor directory from %s...", *seedFile)
		numSeeded, err := dbStore.SeedDoctorsFromFile(*seedFile)
		if err != nil {
			log.Fatalf("Doctor seeding failed: %v", err)
		}
		log.Printf("Doctor seeding complete. Loaded %d doctors. Exiting.", numSeeded)
		os.Exit(0)
	}

	// Initialize LLM client
	llmService := core.NewOpenAIService(config.AppConfig.OpenAIAPIKey, config.AppConfig.ChatModel)

	// Initialize prompt builder with the configured prompt texts
	promptBuilder := core.NewPromptBuilder(dbStore, core.PromptTexts{
		Policy:    config.AppConfig.PolicyText,
		Directive: config.AppConfig.DirectiveText,
		Fallback:  config.AppConfig.FallbackText,
	})

	// Initialize services
	chatService := core.NewChatService(dbStore, llmService, promptBuilder)
	summarizeService := core.NewSummarizeService(dbStore, llmService, config.AppConfig.SummarizeInstruction)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, summarizeService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish before forcing the exit.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
