package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Evolution  EvolutionConfig
	Bridge     BridgeConfig
	Events     EventsConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	ServerID           string
	SecretKey          string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// EvolutionConfig seeds the gateway settings. Values stored through the
// settings API take precedence at runtime.
type EvolutionConfig struct {
	BaseURL      string
	Token        string
	InstanceName string
}

type BridgeConfig struct {
	OperatorName string
	GuestName    string
	DedupeTTL    time.Duration
	ContactTTL   time.Duration
}

type EventsConfig struct {
	AMQPURL  string
	Exchange string
	Producer string
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// DefaultInstanceName is used when no instance name is configured.
const DefaultInstanceName = "Odoo"

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()

	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false) || getEnvBool("DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
		SecretKey:          getEnv("APP_SECRET_KEY", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbDriver := getEnv("DB_DRIVER", "sqlite")
	dbName := getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "wabridge.db"))
	dbCfg := DatabaseConfig{
		Driver:          dbDriver,
		Name:            dbName,
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "wabridge:"),
	}

	evoCfg := EvolutionConfig{
		BaseURL:      strings.TrimRight(getEnv("EVOLUTION_API_URL", ""), "/"),
		Token:        getEnv("EVOLUTION_API_TOKEN", ""),
		InstanceName: getEnv("EVOLUTION_INSTANCE_NAME", DefaultInstanceName),
	}

	bridgeCfg := BridgeConfig{
		OperatorName: getEnv("BRIDGE_OPERATOR_NAME", "Operator"),
		GuestName:    getEnv("BRIDGE_GUEST_NAME", "WhatsApp Group Guest"),
		DedupeTTL:    getEnvDuration("BRIDGE_DEDUPE_TTL", 10*time.Minute),
		ContactTTL:   getEnvDuration("BRIDGE_CONTACT_CACHE_TTL", 5*time.Minute),
	}

	cfg := &Config{
		App:       appCfg,
		Paths:     pathsCfg,
		Database:  dbCfg,
		Evolution: evoCfg,
		Bridge:    bridgeCfg,
		Events: EventsConfig{
			AMQPURL:  getEnv("EVENTS_AMQP_URL", ""),
			Exchange: getEnv("EVENTS_EXCHANGE", "wabridge.events"),
			Producer: "az-wabridge/" + appCfg.Version,
		},
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("MESSAGE_WORKER_POOL_SIZE", 8),
			QueueSize: getEnvInt("MESSAGE_WORKER_QUEUE_SIZE", 256),
		},
	}

	Global = cfg
	return cfg, nil
}
