// shared/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CommonConfig holds configuration fields shared by every service that
// participates in the Redis-backed instance registry.
type CommonConfig struct {
	RedisAddrs              []string      // Redis server addresses (e.g., "redis-cluster:6379")
	RedisPassword           string        // Redis password for authentication
	HeartbeatInterval       time.Duration // How often to send a heartbeat to the registry (e.g., 5s)
	HeartbeatTTL            time.Duration // How long an instance is considered alive without a heartbeat (e.g., 15s)
	RegistryCleanupInterval time.Duration // How often the registry actively cleans stale entries (e.g., 30s)
	ServiceIP               string        // The IP address this service advertises for registration (Kubernetes Pod IP)
	ServicePort             int           // The port this service listens on, used for registration
}

// EngineServiceConfig holds configuration specific to the territory engine.
type EngineServiceConfig struct {
	CommonConfig                            // Embed CommonConfig
	ListenAddr                string        // Address for the HTTP server (e.g., ":8080")
	MongoDBConnStr            string        // MongoDB connection string
	MongoDBDatabase           string        // MongoDB database name
	MongoDBNodesCollection    string        // Collection for nodes
	MongoDBTeamsCollection    string        // Collection for teams
	MongoDBLedgerCollection   string        // Collection for per-(team,type) resource ledger entries
	MongoDBAuditCollection    string        // Collection for the audit log
	MongoDBSettingsCollection string        // Collection holding the singleton game settings document
	TickInterval              time.Duration // Cadence of the global accrual tick (e.g., 1m)
	SeedFile                  string        // Optional YAML seed file applied at boot (teams + node placement)
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{}
	var err error

	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"localhost:6379"}
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			cfg.RedisAddrs = append(cfg.RedisAddrs, strings.TrimSpace(addr))
		}
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.HeartbeatInterval, err = getDuration("SERVICE_HEARTBEAT_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.HeartbeatTTL, err = getDuration("SERVICE_HEARTBEAT_TTL", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RegistryCleanupInterval, err = getDuration("SERVICE_REGISTRY_CLEANUP_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	// Service IP (for registration, from Kubernetes Pod IP)
	cfg.ServiceIP = os.Getenv("POD_IP")
	if cfg.ServiceIP == "" {
		cfg.ServiceIP = "0.0.0.0"
		fmt.Printf("WARNING: POD_IP not set, defaulting ServiceIP to %s\n", cfg.ServiceIP)
	}

	return cfg, nil
}

// LoadEngineServiceConfig loads configuration for the territory engine.
func LoadEngineServiceConfig() (*EngineServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for engine service: %w", err)
	}

	cfg := &EngineServiceConfig{
		CommonConfig:              common,
		ListenAddr:                os.Getenv("ENGINE_LISTEN_ADDR"),
		MongoDBConnStr:            os.Getenv("MONGODB_CONN_STR"),
		MongoDBDatabase:           os.Getenv("MONGODB_DATABASE"),
		MongoDBNodesCollection:    os.Getenv("MONGODB_NODES_COLLECTION"),
		MongoDBTeamsCollection:    os.Getenv("MONGODB_TEAMS_COLLECTION"),
		MongoDBLedgerCollection:   os.Getenv("MONGODB_LEDGER_COLLECTION"),
		MongoDBAuditCollection:    os.Getenv("MONGODB_AUDIT_COLLECTION"),
		MongoDBSettingsCollection: os.Getenv("MONGODB_SETTINGS_COLLECTION"),
		SeedFile:                  os.Getenv("ENGINE_SEED_FILE"),
	}

	// Apply defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.MongoDBConnStr == "" {
		cfg.MongoDBConnStr = "mongodb://mongodb-service:27017"
	}
	if cfg.MongoDBDatabase == "" {
		cfg.MongoDBDatabase = "territory"
	}
	if cfg.MongoDBNodesCollection == "" {
		cfg.MongoDBNodesCollection = "nodes"
	}
	if cfg.MongoDBTeamsCollection == "" {
		cfg.MongoDBTeamsCollection = "teams"
	}
	if cfg.MongoDBLedgerCollection == "" {
		cfg.MongoDBLedgerCollection = "resources"
	}
	if cfg.MongoDBAuditCollection == "" {
		cfg.MongoDBAuditCollection = "audit_log"
	}
	if cfg.MongoDBSettingsCollection == "" {
		cfg.MongoDBSettingsCollection = "settings"
	}

	cfg.TickInterval, err = getDuration("ENGINE_TICK_INTERVAL", 1*time.Minute)
	if err != nil {
		return nil, err
	}

	// Extract ServicePort from ListenAddr
	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from ENGINE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	return cfg, nil
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// extractPort extracts the numeric port from a listen address (e.g., ":8080" -> 8080, "0.0.0.0:8080" -> 8080)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		// If SplitHostPort fails, check if ListenAddr is just a port (e.g., ":8080")
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}
