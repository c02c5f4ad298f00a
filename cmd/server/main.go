package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pokeclass/pokeclass/internal/api"
	"github.com/pokeclass/pokeclass/internal/config"
	"github.com/pokeclass/pokeclass/internal/database"
	"github.com/pokeclass/pokeclass/internal/events"
	"github.com/pokeclass/pokeclass/internal/mirror"
	"github.com/pokeclass/pokeclass/internal/notify"
	"github.com/pokeclass/pokeclass/internal/reports"
	"github.com/pokeclass/pokeclass/internal/repositories"
	"github.com/pokeclass/pokeclass/internal/services"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize logger
	logger.Init()
	defer logger.Sync()

	logger.Info("Starting PokeClass reward server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := database.SeedCatalog(db); err != nil {
		logger.Warn("Failed to seed catalog", "error", err)
	}

	// Local mirror. The server stays up without it, it just loses the
	// offline fallback.
	mirrorStore, err := mirror.Open(cfg.MirrorPath)
	if err != nil {
		logger.Warn("Failed to open local mirror, fallback disabled", "error", err)
		mirrorStore = nil
	} else {
		defer mirrorStore.Close()
	}

	// Event bus and notification sink
	bus := events.NewBus()
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.NotifyBotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.NotifyBotToken, cfg.OwnerChatID, db)
		if err != nil {
			logger.Warn("Failed to start Telegram notifier, falling back to log", "error", err)
		} else {
			notifier = tg
		}
	}
	notify.NewSubscriber(notifier).Register(bus)

	// Repositories and services
	coinRepo := repositories.NewCoinRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	pokemonRepo := repositories.NewPokemonRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)

	coins := services.NewCoinService(coinRepo, mirrorStore, bus)
	credits := services.NewCreditService(creditRepo, cfg, mirrorStore, bus)
	collection := services.NewCollectionService(pokemonRepo, bus)
	shop := services.NewShopService(pokemonRepo, coinRepo, collection, mirrorStore, bus)
	mystery := services.NewMysteryBallService(attemptRepo, pokemonRepo, coins, collection, cfg, bus)
	teacher := services.NewTeacherService(credits, coins, collection, pokemonRepo)

	// Replay anything journaled while the database was down, then keep
	// replaying in the background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if mirrorStore != nil {
		reconciler := services.NewReconciler(coinRepo, creditRepo, mirrorStore)
		if err := reconciler.ReplayPending(); err != nil {
			logger.Warn("Startup mirror replay incomplete", "error", err)
		}
		go reconciler.Run(ctx, time.Minute)
	}

	handler := api.NewHandler(coins, credits, collection, shop, mystery, teacher, reports.NewExporter(db), cfg.JWTSecret)
	server := api.NewServer(":"+cfg.AppPort, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", err)
		}
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}

	// Let in-flight notifications drain before exit
	bus.Flush()
	logger.Info("Server stopped")
}
