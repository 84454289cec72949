package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sam/code-clash/internal/api"
	"github.com/sam/code-clash/internal/config"
	"github.com/sam/code-clash/internal/grading"
	"github.com/sam/code-clash/internal/leaderboard"
	"github.com/sam/code-clash/internal/repository/postgres"
	"github.com/sam/code-clash/internal/service"
	"github.com/sam/code-clash/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize WebSocket hub
	hub := ws.NewHub()

	// Optional live leaderboard cache
	lb := leaderboard.NewCache(cfg.RedisAddr, cfg.RedisPassword)

	// Code execution client
	grader := grading.NewClient(cfg.ExecutorURL, cfg.ExecutorTimeout)

	// Initialize services
	services := service.NewServices(repos, cfg, hub, grader, lb)

	// Games that were running before a restart still need their expiry
	if err := services.Game.ResumeTimers(context.Background()); err != nil {
		log.Printf("failed to resume game timers: %v", err)
	}

	// Initialize router
	router := api.NewRouter(services, hub, repos, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	services.Game.StopTimers()
	hub.Stop()
	if err := lb.Close(); err != nil {
		log.Printf("failed to close leaderboard cache: %v", err)
	}

	log.Println("Server stopped")
}
