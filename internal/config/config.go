package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Cloudinary CloudinaryConfig
	Cache      CacheConfig
	Scheduler  SchedulerConfig
	Icons      IconConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Environment     string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
	ServerName      string
	CORSOrigin      string
	SubmitLimit     int
	SubmitWindow    time.Duration
	SwaggerUser     string
	SwaggerPassword string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	ConnectRetries     int
	MigrationsPath     string
	AutoMigrate        bool
}

// AuthConfig holds token verification settings
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName      string
	APIKey         string
	APISecret      string
	Folder         string
	MaxFileSize    int64
	MaxRetries     int
	UploadTimeout  time.Duration
	SignedURLTTL   time.Duration
	AllowedFormats []string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Provider string // "memory", "redis"
	RedisURL string
	TTL      time.Duration
	MaxKeys  int
}

// SchedulerConfig holds lifecycle job settings
type SchedulerConfig struct {
	Enabled          bool
	TimeZone         string
	MaterializeSpec  string
	CloseSpec        string
	OpenSpec         string
	FailureThreshold int
	LockTTL          time.Duration
}

// IconConfig points at an optional YAML override of the icon map
type IconConfig struct {
	MapFile string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, loading .env.<GO_ENV> first
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server:     loadServerConfig(env),
		Database:   loadDatabaseConfig(env),
		Auth:       loadAuthConfig(),
		Cloudinary: loadCloudinaryConfig(),
		Cache:      loadCacheConfig(),
		Scheduler:  loadSchedulerConfig(),
		Icons:      IconConfig{MapFile: getEnv("ICON_MAP_FILE", "")},
		Logging:    loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
		ServerName:      getEnv("SERVER_NAME", "EcoMission"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		SubmitLimit:     getIntEnv("SUBMIT_RATE_LIMIT", 10),
		SubmitWindow:    getDurationEnv("SUBMIT_RATE_WINDOW", time.Minute),
		SwaggerUser:     getEnv("SWAGGER_USERNAME", ""),
		SwaggerPassword: getEnv("SWAGGER_PASSWORD", ""),
	}

	if env == "development" {
		config.GracefulTimeout = 10 * time.Second
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	config := DatabaseConfig{
		URL:                getEnv("DATABASE_URL", ""),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		ConnectRetries:     getIntEnv("DB_CONNECT_RETRIES", 5),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),
		AutoMigrate:        getBoolEnv("DB_AUTO_MIGRATE", env != "production"),
	}

	if env == "production" {
		config.MaxOpenConns = min(config.MaxOpenConns, 20)
	}

	return config
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),
	}
}

func loadCloudinaryConfig() CloudinaryConfig {
	config := CloudinaryConfig{
		CloudName:     getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:        getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:     getEnv("CLOUDINARY_API_SECRET", ""),
		Folder:        getEnv("CLOUDINARY_FOLDER", "missions"),
		MaxFileSize:   getInt64Env("MAX_FILE_SIZE", 10*1024*1024),
		MaxRetries:    getIntEnv("CLOUDINARY_MAX_RETRIES", 3),
		UploadTimeout: getDurationEnv("CLOUDINARY_UPLOAD_TIMEOUT", 30*time.Second),
		SignedURLTTL:  getDurationEnv("SIGNED_URL_TTL", 10*time.Minute),
	}

	if formats := getEnv("CLOUDINARY_ALLOWED_FORMATS", "jpg,jpeg,png,gif,bmp,tiff,heic,webp"); formats != "" {
		config.AllowedFormats = strings.Split(formats, ",")
	}

	return config
}

func loadCacheConfig() CacheConfig {
	config := CacheConfig{
		Provider: getEnv("CACHE_PROVIDER", "memory"),
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      getDurationEnv("CACHE_TTL", 5*time.Minute),
		MaxKeys:  getIntEnv("CACHE_MAX_KEYS", 10000),
	}

	// A configured Redis URL implies the redis provider
	if config.RedisURL != "" && config.Provider == "memory" {
		config.Provider = "redis"
	}

	return config
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:          getBoolEnv("SCHEDULER_ENABLED", true),
		TimeZone:         getEnv("APP_TIMEZONE", "Asia/Seoul"),
		MaterializeSpec:  getEnv("SCHEDULER_MATERIALIZE_CRON", "0 30 23 * * *"),
		CloseSpec:        getEnv("SCHEDULER_CLOSE_CRON", "0 55 23 * * *"),
		OpenSpec:         getEnv("SCHEDULER_OPEN_CRON", "0 0 0 * * *"),
		FailureThreshold: getIntEnv("SCHEDULER_FAILURE_THRESHOLD", 10),
		LockTTL:          getDurationEnv("SCHEDULER_LOCK_TTL", 10*time.Minute),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// ===============================
// VALIDATION
// ===============================

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Auth.Validate(c.Server.Environment); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler config: %w", err)
	}

	return nil
}

func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}

	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}

	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}

	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}

	return nil
}

func (a *AuthConfig) Validate(env string) error {
	if a.JWTSecret == "" && env == "production" {
		return fmt.Errorf("JWT_SECRET must be set for production")
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}

	return nil
}

func (s *SchedulerConfig) Validate() error {
	if _, err := time.LoadLocation(s.TimeZone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", s.TimeZone, err)
	}

	if s.FailureThreshold <= 0 {
		return fmt.Errorf("FailureThreshold must be positive")
	}

	return nil
}

// Location returns the campus time zone, falling back to UTC
func (s *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Configured reports whether Cloudinary credentials are present
func (c *CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
