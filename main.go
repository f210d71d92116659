package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/tutorbot/internal/ai"
	"github.com/example/tutorbot/internal/analyzer"
	"github.com/example/tutorbot/internal/bot"
	"github.com/example/tutorbot/internal/database"
	"github.com/example/tutorbot/internal/scheduler"
	"github.com/example/tutorbot/internal/server"
	"github.com/example/tutorbot/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	oracle, err := ai.New()
	if err != nil {
		log.Fatalf("Failed to create completion client: %v", err)
	}

	store := database.NewStore()
	mistakeAnalyzer := analyzer.New(oracle)
	registry := session.NewRegistry()

	// Sweep abandoned sessions out of memory
	sched := scheduler.New(registry)
	sched.Start()
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The Telegram front end is optional; the HTTP API always runs.
	if os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
		tgBot, err := bot.New(registry, store, oracle, mistakeAnalyzer)
		if err != nil {
			log.Fatalf("Failed to create Telegram bot: %v", err)
		}
		defer tgBot.Stop()

		go func() {
			if err := tgBot.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("Telegram bot error: %v", err)
			}
		}()
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := server.New(registry, store, oracle, mistakeAnalyzer)
	go func() {
		if err := srv.Run(addr); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Printf("Tutor listening on %s. Press Ctrl+C to stop.", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down", sig)
	cancel()
}
