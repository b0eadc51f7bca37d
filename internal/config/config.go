package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	App      *AppConfig      `yaml:"app"`
	Database *DatabaseConfig `yaml:"database"`
	Redis    *RedisConfig    `yaml:"redis"`
	Push     *PushConfig     `yaml:"push"`
	Security *SecurityConfig `yaml:"security"`
	Swap     *SwapConfig     `yaml:"swap"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

type DatabaseConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	MaxPoolSize    int           `yaml:"max_pool_size"`
	MinPoolSize    int           `yaml:"min_pool_size"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SocketTimeout  time.Duration `yaml:"socket_timeout"`
}

type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PushConfig struct {
	Enabled             bool   `yaml:"enabled"`
	FCMCredentialsFile  string `yaml:"fcm_credentials_file"`
	APNSEnabled         bool   `yaml:"apns_enabled"`
	APNSKeyFile         string `yaml:"apns_key_file"`
	APNSKeyID           string `yaml:"apns_key_id"`
	APNSTeamID          string `yaml:"apns_team_id"`
	APNSTopic           string `yaml:"apns_topic"`
	APNSProduction      bool   `yaml:"apns_production"`
	NotificationTimeout time.Duration `yaml:"notification_timeout"`
}

type SecurityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// SwapConfig holds the timing knobs of the swap lifecycle.
type SwapConfig struct {
	// AcceptTimeout is the acceptance window granted to the candidate.
	AcceptTimeout time.Duration `yaml:"accept_timeout"`
	// SweepInterval drives the built-in sweep ticker; zero disables it and
	// leaves sweeping to an external scheduler hitting the admin endpoint.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// RetentionPeriod bounds how long terminal records are kept.
	RetentionPeriod time.Duration `yaml:"retention_period"`
	// TripCacheTTL bounds staleness of the trip-status oracle cache.
	TripCacheTTL time.Duration `yaml:"trip_cache_ttl"`
}

func Load() (*Config, error) {
	config := &Config{
		App:      loadAppConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Push:     loadPushConfig(),
		Security: loadSecurityConfig(),
		Swap:     loadSwapConfig(),
	}

	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "BusFleet"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "localhost"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGODB_DATABASE", "busfleet"),
		MaxPoolSize:    getEnvAsInt("MONGODB_MAX_POOL_SIZE", 100),
		MinPoolSize:    getEnvAsInt("MONGODB_MIN_POOL_SIZE", 5),
		ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:  getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
	}
}

func loadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvAsInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvAsInt("REDIS_DB", 0),
		PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func loadPushConfig() *PushConfig {
	return &PushConfig{
		Enabled:             getEnvAsBool("PUSH_ENABLED", false),
		FCMCredentialsFile:  getEnv("FCM_CREDENTIALS_FILE", ""),
		APNSEnabled:         getEnvAsBool("APNS_ENABLED", false),
		APNSKeyFile:         getEnv("APNS_KEY_FILE", ""),
		APNSKeyID:           getEnv("APNS_KEY_ID", ""),
		APNSTeamID:          getEnv("APNS_TEAM_ID", ""),
		APNSTopic:           getEnv("APNS_TOPIC", ""),
		APNSProduction:      getEnvAsBool("APNS_PRODUCTION", false),
		NotificationTimeout: getEnvAsDuration("NOTIFICATION_TIMEOUT", 10*time.Second),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
	}
}

func loadSwapConfig() *SwapConfig {
	return &SwapConfig{
		AcceptTimeout:   getEnvAsDuration("SWAP_ACCEPT_TIMEOUT", 10*time.Minute),
		SweepInterval:   getEnvAsDuration("SWAP_SWEEP_INTERVAL", 5*time.Minute),
		RetentionPeriod: getEnvAsDuration("SWAP_RETENTION_PERIOD", 7*24*time.Hour),
		TripCacheTTL:    getEnvAsDuration("SWAP_TRIP_CACHE_TTL", 15*time.Second),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
