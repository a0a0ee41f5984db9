// Package config provides configuration management for the valey application.
// It handles loading and validation of configuration values from environment
// variables, with support for required variables, default values, and
// collective error reporting: all problems found while loading are returned as
// one aggregated error instead of failing on the first.
//
// Two sections deliberately do NOT fail fast. The avatar object store and the
// Redis session store degrade to a disabled client when their variables are
// absent, so the application still serves everything that does not need them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PoolConfig represents configuration for a single database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret            string        // Secret key for signing JWTs
	AccessTokenDuration  time.Duration // Duration for access tokens
	RefreshTokenDuration time.Duration // Duration for refresh tokens
}

// RedisConfig holds configuration for the session record store.
// A zero Addr means Redis is not configured; sessions then rely on JWT
// expiry alone and no expiry notifications are produced.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis session store is configured.
func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Addr != ""
}

// StorageConfig holds configuration for the S3-compatible avatar object store.
// A zero Endpoint means storage is not configured; avatar uploads then fail
// with an external-service error instead of the process refusing to start.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is the externally reachable prefix for objects in Bucket,
	// e.g. "https://cdn.example.com/avatars". Public URLs are formed by
	// joining it with the object key.
	PublicBaseURL string
}

// Enabled reports whether the object store is configured.
func (c *StorageConfig) Enabled() bool {
	return c != nil && c.Endpoint != "" && c.Bucket != ""
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string // Port for the HTTP server
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB      *PoolConfig
	Auth    *AuthConfig
	Redis   *RedisConfig
	Storage *StorageConfig
	Server  *ServerConfig
}

// getRequiredEnv fetches a required environment variable, appending to the
// errors slice if it is not set.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv fetches an optional environment variable with a default.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt fetches an optional environment variable parsed as an int.
// Uses defaultValue if not set; appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration fetches an optional environment variable parsed as a
// time.Duration ("15m", "168h"). Uses defaultValue if not set; appends an
// error if parsing fails.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the connection pool size within sane bounds.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 5 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 5, clamping to 5", varName, size))
		return 5
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		return 100
	}
	return size
}

// LoadConfig creates and returns an AppConfig by reading and validating
// environment variables. It collects all errors encountered during loading
// and returns a single aggregated error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Database configuration.
	dbUser := getRequiredEnv("DB_USER", &errors)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errors)
	dbName := getRequiredEnv("DB_NAME", &errors)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errors)
	poolSize := clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors), "DB_POOL_SIZE", &errors)

	dbConfig := &PoolConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		MaxSize:  poolSize,
	}

	// Auth configuration.
	authConfig := &AuthConfig{
		JWTSecret:            getRequiredEnv("JWT_SECRET", &errors),
		AccessTokenDuration:  getOptionalEnvDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute, &errors),
		RefreshTokenDuration: getOptionalEnvDuration("JWT_REFRESH_TOKEN_DURATION", 168*time.Hour, &errors), // 7 days
	}

	// Session record store. Optional: absent REDIS_ADDR disables it.
	redisConfig := &RedisConfig{
		Addr:     getOptionalEnv("REDIS_ADDR", ""),
		Password: getOptionalEnv("REDIS_PASSWORD", ""),
		DB:       getOptionalEnvInt("REDIS_DB", 0, &errors),
	}

	// Avatar object store. Optional: absent values degrade to a disabled
	// client rather than failing fast.
	storageConfig := &StorageConfig{
		Endpoint:      getOptionalEnv("STORAGE_ENDPOINT", ""),
		Region:        getOptionalEnv("STORAGE_REGION", "us-east-1"),
		Bucket:        getOptionalEnv("STORAGE_BUCKET", "avatars"),
		AccessKey:     getOptionalEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey:     getOptionalEnv("STORAGE_SECRET_KEY", ""),
		PublicBaseURL: getOptionalEnv("STORAGE_PUBLIC_BASE_URL", ""),
	}
	if storageConfig.Endpoint == "" {
		// Explicitly disabled; Enabled() checks both fields.
		storageConfig.Bucket = ""
	}

	serverConfig := &ServerConfig{
		Port: getOptionalEnv("PORT", "8080"),
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		DB:      dbConfig,
		Auth:    authConfig,
		Redis:   redisConfig,
		Storage: storageConfig,
		Server:  serverConfig,
	}, nil
}
