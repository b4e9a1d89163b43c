package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	engineapi "github.com/foodwars/territory-engine/engine/api"
	"github.com/foodwars/territory-engine/engine/broadcast"
	"github.com/foodwars/territory-engine/engine/seed"
	"github.com/foodwars/territory-engine/engine/service"
	"github.com/foodwars/territory-engine/engine/store"
	"github.com/foodwars/territory-engine/engine/ticker"
	"github.com/foodwars/territory-engine/shared/api"
	"github.com/foodwars/territory-engine/shared/cluster"
	"github.com/foodwars/territory-engine/shared/config"
	"github.com/foodwars/territory-engine/shared/mongodb"
	redisu "github.com/foodwars/territory-engine/shared/redis"
	"github.com/foodwars/territory-engine/shared/registry"
)

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadEngineServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded for Territory Engine. Listening on: %s", cfg.ListenAddr)

	// --- 2. Connect to MongoDB ---
	mongoClient, err := mongodb.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Printf("Error disconnecting MongoDB client: %v", err)
		}
	}()

	// --- 3. Connect to Redis Cluster ---
	redisClient, err := redisu.NewRedisClusterClient(cfg.RedisAddrs, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis Cluster: %v", err)
	}
	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}()

	// --- 4. Initialize Data Stores ---
	nodeStore := store.NewNodeStore(mongoClient.Collection(cfg.MongoDBNodesCollection))
	teamStore := store.NewTeamStore(mongoClient.Collection(cfg.MongoDBTeamsCollection))
	ledgerStore := store.NewLedgerStore(mongoClient.Collection(cfg.MongoDBLedgerCollection))
	auditStore := store.NewAuditStore(mongoClient.Collection(cfg.MongoDBAuditCollection))
	settingsStore := store.NewSettingsStore(mongoClient.Collection(cfg.MongoDBSettingsCollection))

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	if err := teamStore.EnsureIndexes(bootCtx); err != nil {
		log.Fatalf("Failed to ensure team indexes: %v", err)
	}
	if err := ledgerStore.EnsureIndexes(bootCtx); err != nil {
		log.Fatalf("Failed to ensure ledger indexes: %v", err)
	}

	// --- 5. Apply Seed Data (optional) ---
	if cfg.SeedFile != "" {
		seedFile, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
		if err := seed.Apply(bootCtx, seedFile, teamStore, nodeStore); err != nil {
			log.Fatalf("Failed to apply seed data: %v", err)
		}
		log.Printf("Seed data applied from %s.", cfg.SeedFile)
	}

	// --- 6. Initialize Broadcasters ---
	// Redis carries events to every gateway; the local hub serves directly
	// connected HUD clients.
	wsHub := broadcast.NewHub()
	defer wsHub.Close()
	broadcaster := broadcast.NewMulti(
		broadcast.NewRedisBroadcaster(redisClient),
		wsHub,
	)

	// --- 7. Initialize Business Logic Service ---
	gameService := service.NewGameService(
		nodeStore,
		teamStore,
		ledgerStore,
		auditStore,
		settingsStore,
		mongoClient,
		broadcaster,
	)
	log.Println("Game Service business logic initialized.")

	// --- 8. Initialize API Handlers ---
	engineAPIHandlers := engineapi.NewEngineAPIHandlers(gameService)

	// --- 9. Instance Registry + Accrual Ticker ---
	registrar := registry.NewInstanceRegistrar(redisClient, "territory-engine", &cfg.CommonConfig)
	registrar.Start()
	defer registrar.Stop()

	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL)
	assignmentManager := cluster.NewAssignmentManager(registryClient, registrar, cfg.HeartbeatInterval)

	accrualTicker := ticker.NewAccrualTicker(cfg, gameService, assignmentManager)
	go accrualTicker.Start()
	defer accrualTicker.Stop()

	// --- 10. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	engineAPIHandlers.RegisterRoutes(baseServer.Router)
	baseServer.Router.HandleFunc("/ws", wsHub.ServeWS).Methods("GET")
	log.Println("HTTP routes registered.")

	// --- 11. Start HTTP Server ---
	go func() {
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed to start: %v", err)
		}
	}()

	// --- 12. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down Territory Engine...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server graceful shutdown failed: %v", err)
	}
	log.Println("Territory Engine gracefully shut down.")
}
