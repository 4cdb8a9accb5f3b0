package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Storage   StorageConfig
	JWT       JWTConfig
	Session   SessionConfig
	Assistant AssistantConfig
	Ingestion IngestionConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
	MaxUploadMB    int
}

type DBConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type StorageConfig struct {
	Driver   string
	LocalDir string
	MinIO    MinIOConfig
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// DefaultJWTSecret is only fit for local development.
const DefaultJWTSecret = "change-me-in-production"

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// UsesDefaultSecret reports whether tokens would be signed with DefaultJWTSecret.
func (j JWTConfig) UsesDefaultSecret() bool {
	return j.Secret == "" || j.Secret == DefaultJWTSecret
}

type SessionConfig struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

type AssistantConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	SingleTurn bool
}

type IngestionConfig struct {
	StagedTTL     time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from the environment, after merging an optional dotenv file
// (ENV_FILE, default ".env"). Variables already set in the environment win over the file.
func Load() *Config {
	_ = loadDotEnv(getEnv("ENV_FILE", ".env"))

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
			MaxUploadMB:    getEnvAsInt("MAX_UPLOAD_MB", 25),
		},
		DB: DBConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "healthmate.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "healthmate"),
			Password: getEnv("DB_PASSWORD", "healthmate_secret"),
			Name:     getEnv("DB_NAME", "healthmate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			LocalDir: getEnv("UPLOAD_DIR", "user_uploaded_files"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", "healthmate"),
				SecretKey: getEnv("MINIO_SECRET_KEY", "healthmate_secret"),
				Bucket:    getEnv("MINIO_BUCKET", "medical-records"),
				UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			},
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", DefaultJWTSecret),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 12),
		},
		Session: SessionConfig{
			Backend:         strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
			TTL:             getEnvAsDuration("SESSION_TTL", 12*time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
			RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			RedisDB:         getEnvAsInt("REDIS_DB", 0),
		},
		Assistant: AssistantConfig{
			APIKey:     getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", "")),
			Model:      getEnv("ASSISTANT_MODEL", "gemini-pro"),
			Timeout:    getEnvAsDuration("ASSISTANT_TIMEOUT", 60*time.Second),
			SingleTurn: getEnvAsBool("ASSISTANT_SINGLE_TURN", false),
		},
		Ingestion: IngestionConfig{
			StagedTTL:     getEnvAsDuration("STAGED_UPLOAD_TTL", time.Hour),
			SweepInterval: getEnvAsDuration("STAGED_SWEEP_INTERVAL", 10*time.Minute),
		},
	}
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
