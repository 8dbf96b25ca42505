package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable through STORE_BACKEND
const (
	BackendMemory       = "memory"
	BackendMySQL        = "mysql"
	BackendPostgres     = "postgres"
	BackendGormPostgres = "gorm-postgres"
	BackendSQLite       = "sqlite"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	AppPort string
	AppEnv  string

	// Logging
	LogLevel string

	// Storage
	StoreBackend string
	DatabaseURL  string // required for postgres backends
	SQLitePath   string
	SeedCatalog  bool

	// MySQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (optional; empty address disables the cache and redis carts)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CartTTL       time.Duration

	// Collaborators
	PriceServiceURL     string
	PriceServiceTimeout time.Duration
	BuildRulesPath      string

	// Auth stub
	JWTSigningKey string
	JWTExpiration time.Duration
	DemoUserID    string
	DemoUserEmail string
	DemoUserName  string

	// OpenTelemetry
	MetricsEnabled            bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPHeaders   string // For SigNoz Cloud: signoz-ingestion-key=<key>
	OTELExporterOTLPInsecure  bool   // true for http://, false for https://
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	appEnv := getEnv("APP_ENV", "development")

	return &Config{
		AppPort: getEnv("PORT", "3001"),
		AppEnv:  appEnv,

		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLitePath:   getEnv("SQLITE_PATH", "pcstore.db"),
		SeedCatalog:  getEnvBool("SEED_CATALOG", true),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "pcstore"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		CartTTL:       getEnvDuration("CART_TTL", 30*24*time.Hour),

		PriceServiceURL:     getEnv("PRICE_SERVICE_URL", ""),
		PriceServiceTimeout: getEnvDuration("PRICE_SERVICE_TIMEOUT", 10*time.Second),
		BuildRulesPath:      getEnv("BUILD_RULES_PATH", ""),

		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "demo-signing-key"),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
		DemoUserID:    getEnv("DEMO_USER_ID", "demo-user"),
		DemoUserEmail: getEnv("DEMO_USER_EMAIL", "demo@pcparts.local"),
		DemoUserName:  getEnv("DEMO_USER_NAME", "Demo User"),

		MetricsEnabled:            getEnvBool("METRICS_ENABLED", false),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPHeaders:   getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "pcparts-store"),
		OTELServiceVersion:        getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", appEnv),
	}
}

// Validate checks the backend selection and its required settings
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendMySQL, BackendSQLite:
	case BackendPostgres, BackendGormPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

// GetMySQLDSN returns the MySQL DSN string
func (c *Config) GetMySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
