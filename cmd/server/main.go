package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/app/service"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
	"codearena/internal/judge/judge0"
	"codearena/internal/judge/runner"
	"codearena/internal/platform/cache"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/pkg/logger"
)

func main() {
	config.Load()
	if err := logger.Init(logger.Config{
		Level:  config.AppConfig.LogLevel,
		Format: config.AppConfig.LogFormat,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	security.InitJWT()

	database.Connect()
	defer database.Close()

	cache.Connect()
	defer cache.Close()

	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	discussionRepo := repository.NewPgDiscussionRepository(database.DB)
	solutionRepo := repository.NewPgSolutionRepository(database.DB)

	// Judge providers in fallback order: remote service first, local
	// process runner as the safety net.
	var providers []judge.Provider
	if config.AppConfig.Judge0APIKey != "" {
		providers = append(providers, judge0.NewClient(
			config.AppConfig.Judge0BaseURL,
			config.AppConfig.Judge0APIKey,
			config.AppConfig.Judge0APIHost,
		))
	} else {
		logger.Warnf("JUDGE0_API_KEY not set, remote judging disabled")
	}
	local, err := runner.NewLocal(config.AppConfig.RunnerTempDir)
	if err != nil {
		logger.Fatalf("Could not initialize local runner: %v", err)
	}
	providers = append(providers, local)

	authService := service.NewAuthService(userRepo)
	problemService := service.NewProblemService(problemRepo, database.DB)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, providers, database.DB)
	discussionService := service.NewDiscussionService(discussionRepo, problemRepo)
	solutionService := service.NewSolutionService(solutionRepo, problemRepo)
	userService := service.NewUserService(userRepo, cache.RDB, config.AppConfig.LeaderboardCacheTTL)

	router := api.NewRouter(authService, problemService, submissionService, discussionService, solutionService, userService)

	server := &http.Server{
		Addr:    ":" + config.AppConfig.APIPort,
		Handler: router,
		// Write timeout must outlive a full synchronous judging run.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Infof("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Could not listen on %s: %v", config.AppConfig.APIPort, err)
		}
	}()

	<-stop

	logger.Infof("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server shutdown failed: %v", err)
	}
	logger.Infof("Server stopped gracefully")
}
