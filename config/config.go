package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// It is read once at startup and handed to constructors; nothing reads the environment afterwards.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	Token     TokenConfig
	ImageHost ImageHostConfig
	Upload    UploadConfig
	Cookie    CookieConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	Environment  string // development, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	TrustProxy   bool // honor X-Forwarded-For and X-Real-IP for client addresses
}

// StoreConfig selects and configures the user store.
type StoreConfig struct {
	Driver string // mysql, postgres, sqlite, mongo

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	SQLitePath string

	MongoURI string
	MongoDB  string
}

// RedisConfig holds Redis settings. An empty Host disables rate limiting.
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	RateLimit int // requests per minute per client on the auth endpoints
	Burst     int
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// TokenConfig holds signing secrets and lifetimes for access and refresh tokens.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
}

// ImageHostConfig configures where avatars and cover images are stored.
type ImageHostConfig struct {
	Driver        string // minio, s3
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// UploadConfig configures the local staging area for multipart uploads.
type UploadConfig struct {
	StagingDir     string
	MaxUploadBytes int64
	OrphanMaxAge   time.Duration
}

// CookieConfig controls the session cookies set on login and refresh.
type CookieConfig struct {
	Secure   bool
	SameSite string // lax, strict, none
}

// LogConfig mirrors logger.Config without importing it.
type LogConfig struct {
	Level      string
	OutputPath string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15m", "240h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load loads configuration from environment variables (via the given .env file) or defaults.
// An empty envFile means ".env" in the working directory. godotenv never overrides variables
// that are already set.
func Load(envFile string) *Config {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found, relying on existing environment variables and defaults.", envFile)
	}

	stagingDir := getEnv("UPLOAD_STAGING_DIR", filepath.Join("public", "temp"))

	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":8000"),
			Environment:  getEnv("ENV", "development"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			CORSOrigins:  getEnvList("CORS_ORIGIN", []string{"http://localhost:5173"}),
			TrustProxy:   getEnvBool("TRUST_PROXY", false),
		},
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "mysql"),
			DBHost:     getEnv("DB_HOST", "127.0.0.1"),
			DBPort:     getEnv("DB_PORT", "3306"),
			DBUser:     getEnv("DB_USER", "root"),
			DBPassword: os.Getenv("DB_PASSWORD"),
			DBName:     getEnv("DB_NAME", "vidtube"),
			SQLitePath: getEnv("SQLITE_PATH", "vidtube.db"),
			MongoURI:   getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
			MongoDB:    getEnv("MONGODB_DB", "vidtube"),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", ""),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			RateLimit: getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 30),
			Burst:     getEnvInt("AUTH_RATE_LIMIT_BURST", 10),
		},
		Token: TokenConfig{
			AccessSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
			AccessTTL:     getEnvDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
			RefreshSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
			RefreshTTL:    getEnvDuration("REFRESH_TOKEN_EXPIRY", 240*time.Hour),
			Issuer:        getEnv("TOKEN_ISSUER", "vidtube"),
		},
		ImageHost: ImageHostConfig{
			Driver:        getEnv("IMAGE_HOST_DRIVER", "minio"),
			Endpoint:      getEnv("IMAGE_HOST_ENDPOINT", "127.0.0.1:9000"),
			AccessKey:     os.Getenv("IMAGE_HOST_ACCESS_KEY"),
			SecretKey:     os.Getenv("IMAGE_HOST_SECRET_KEY"),
			Bucket:        getEnv("IMAGE_HOST_BUCKET", "vidtube"),
			Region:        getEnv("IMAGE_HOST_REGION", "us-east-1"),
			UseSSL:        getEnvBool("IMAGE_HOST_USE_SSL", false),
			PublicBaseURL: getEnv("IMAGE_HOST_PUBLIC_URL", ""),
		},
		Upload: UploadConfig{
			StagingDir:     stagingDir,
			MaxUploadBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
			OrphanMaxAge:   getEnvDuration("UPLOAD_ORPHAN_MAX_AGE", 10*time.Minute),
		},
		Cookie: CookieConfig{
			Secure:   getEnvBool("COOKIE_SECURE", true),
			SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			OutputPath: getEnv("LOG_FILE", ""),
			MaxSize:    getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:     getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}
}

// Validate reports misconfiguration that must stop the process at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Token.AccessSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Token.RefreshSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.Token.AccessSecret != "" && c.Token.AccessSecret == c.Token.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	switch c.Store.Driver {
	case "mysql", "postgres", "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver))
	}
	switch c.ImageHost.Driver {
	case "minio", "s3":
	default:
		errs = append(errs, fmt.Errorf("unsupported IMAGE_HOST_DRIVER %q", c.ImageHost.Driver))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
