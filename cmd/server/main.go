package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jo-hoe/animal-pictures/internal/backend"
	"github.com/jo-hoe/animal-pictures/internal/backend/imagesource"
	"github.com/jo-hoe/animal-pictures/internal/core"
	frontend "github.com/jo-hoe/animal-pictures/internal/frontend"
	"github.com/joho/godotenv"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

// loadEnvFile loads .env when present; variables already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
}

// loadConfig reads the YAML config when it exists and falls back to the defaults otherwise.
func loadConfig(configPath string) (*core.ServiceConfig, error) {
	config, err := core.LoadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("no config file found, using defaults", "path", configPath)
		config, err = core.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	return config, nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	loadEnvFile()

	// Load configuration
	configPath := getConfigPath()
	config, err := loadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	imageClient := imagesource.NewClient(config.ImageSourceOptions())
	coreService, err := core.NewCoreService(config, imageClient)
	if err != nil {
		slog.Error("failed to create core service", "error", err)
		os.Exit(1)
	}

	server := backend.NewServer(config)
	apiService := backend.NewAPIService(config, coreService)
	apiService.SetRoutes(server)
	frontendService := frontend.NewFrontendService(config, coreService)
	frontendService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("starting http server", "address", portString, "base_path", config.BasePath)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := coreService.Close(); err != nil {
		slog.Error("core service close error", "error", err)
	}
}
