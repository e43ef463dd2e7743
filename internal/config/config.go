package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"go-polyglot-store/pkg/database"
)

// Config is the runtime configuration of the storefront API.
type Config struct {
	Port              string
	PostgresDSN       string
	MongoURI          string
	MongoDatabase     string
	RedisURL          string // empty disables the facet cache
	CatalogPageSize   int
	AdminPageSize     int
	AdminUsername     string
	AdminPasswordHash string
	FacetCacheTTL     time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() *Config {
	return &Config{
		Port:              getEnv("PORT", "3000"),
		PostgresDSN:       database.PostgresDSN(),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DB", "storefront"),
		RedisURL:          os.Getenv("REDIS_URL"),
		CatalogPageSize:   getEnvInt("PRODUCTS_PER_PAGE", 9),
		AdminPageSize:     getEnvInt("ADMIN_PER_PAGE", 20),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		FacetCacheTTL:     getEnvDuration("FACET_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
