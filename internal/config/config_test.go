package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		key := key
		if val, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, val) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("returns config with defaults when no env vars set", func(t *testing.T) {
		unsetEnv(t, "DB_DRIVER", "SERVER_PORT", "STORAGE_DRIVER", "UPLOAD_DIR", "SESSION_BACKEND",
			"ASSISTANT_MODEL", "ASSISTANT_TIMEOUT", "ASSISTANT_SINGLE_TURN", "STAGED_UPLOAD_TTL", "JWT_EXPIRATION_HOURS")
		t.Setenv("ENV_FILE", "")

		cfg := Load()
		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if cfg.DB.Driver != "sqlite" {
			t.Errorf("expected DB.Driver 'sqlite', got %s", cfg.DB.Driver)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("expected Server.Port '8080', got %s", cfg.Server.Port)
		}
		if cfg.Storage.Driver != "local" || cfg.Storage.LocalDir != "user_uploaded_files" {
			t.Errorf("unexpected storage defaults %+v", cfg.Storage)
		}
		if cfg.Session.Backend != "memory" {
			t.Errorf("expected Session.Backend 'memory', got %s", cfg.Session.Backend)
		}
		if cfg.Assistant.Model != "gemini-pro" || cfg.Assistant.Timeout != 60*time.Second {
			t.Errorf("unexpected assistant defaults %+v", cfg.Assistant)
		}
		if cfg.Assistant.SingleTurn {
			t.Error("expected full-transcript mode by default")
		}
		if cfg.Ingestion.StagedTTL != time.Hour {
			t.Errorf("expected StagedTTL 1h, got %v", cfg.Ingestion.StagedTTL)
		}
		if cfg.JWT.ExpirationHours != 12 {
			t.Errorf("expected JWT.ExpirationHours 12, got %d", cfg.JWT.ExpirationHours)
		}
	})

	t.Run("reads environment variables", func(t *testing.T) {
		t.Setenv("ENV_FILE", "")
		t.Setenv("DB_DRIVER", "POSTGRES")
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("STORAGE_DRIVER", "minio")
		t.Setenv("MINIO_USE_SSL", "true")
		t.Setenv("SESSION_BACKEND", "redis")
		t.Setenv("REDIS_DB", "3")
		t.Setenv("ASSISTANT_TIMEOUT", "15s")
		t.Setenv("ASSISTANT_SINGLE_TURN", "true")
		t.Setenv("STAGED_SWEEP_INTERVAL", "30s")

		cfg := Load()

		if cfg.DB.Driver != "postgres" {
			t.Errorf("expected lower-cased driver 'postgres', got %s", cfg.DB.Driver)
		}
		if cfg.DB.Host != "db.internal" {
			t.Errorf("expected DB.Host 'db.internal', got %s", cfg.DB.Host)
		}
		if cfg.Server.Port != "9090" {
			t.Errorf("expected Server.Port '9090', got %s", cfg.Server.Port)
		}
		if cfg.Storage.Driver != "minio" || !cfg.Storage.MinIO.UseSSL {
			t.Errorf("unexpected storage config %+v", cfg.Storage)
		}
		if cfg.Session.Backend != "redis" || cfg.Session.RedisDB != 3 {
			t.Errorf("unexpected session config %+v", cfg.Session)
		}
		if cfg.Assistant.Timeout != 15*time.Second || !cfg.Assistant.SingleTurn {
			t.Errorf("unexpected assistant config %+v", cfg.Assistant)
		}
		if cfg.Ingestion.SweepInterval != 30*time.Second {
			t.Errorf("expected SweepInterval 30s, got %v", cfg.Ingestion.SweepInterval)
		}
	})

	t.Run("falls back on unparsable values", func(t *testing.T) {
		t.Setenv("ENV_FILE", "")
		t.Setenv("MAX_UPLOAD_MB", "lots")
		t.Setenv("SESSION_TTL", "forever")
		t.Setenv("ASSISTANT_SINGLE_TURN", "maybe")

		cfg := Load()

		if cfg.Server.MaxUploadMB != 25 {
			t.Errorf("expected MaxUploadMB fallback 25, got %d", cfg.Server.MaxUploadMB)
		}
		if cfg.Session.TTL != 12*time.Hour {
			t.Errorf("expected SESSION_TTL fallback 12h, got %v", cfg.Session.TTL)
		}
		if cfg.Assistant.SingleTurn {
			t.Error("expected SingleTurn fallback false")
		}
	})

	t.Run("merges dotenv file without overriding the environment", func(t *testing.T) {
		unsetEnv(t, "GOOGLE_API_KEY", "GEMINI_API_KEY", "ASSISTANT_MODEL")
		t.Cleanup(func() {
			os.Unsetenv("GOOGLE_API_KEY")
			os.Unsetenv("ASSISTANT_MODEL")
		})

		path := filepath.Join(t.TempDir(), ".env")
		content := "GOOGLE_API_KEY=from-file\nASSISTANT_MODEL=gemini-file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed writing dotenv: %v", err)
		}
		t.Setenv("ENV_FILE", path)
		t.Setenv("ASSISTANT_MODEL", "gemini-env")

		cfg := Load()

		if cfg.Assistant.APIKey != "from-file" {
			t.Errorf("expected API key from dotenv, got %q", cfg.Assistant.APIKey)
		}
		if cfg.Assistant.Model != "gemini-env" {
			t.Errorf("expected environment to win over dotenv, got %q", cfg.Assistant.Model)
		}
	})

	t.Run("missing dotenv file is not an error", func(t *testing.T) {
		if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Fatalf("expected missing dotenv to be ignored, got %v", err)
		}
	})
}

func TestJWTUsesDefaultSecret(t *testing.T) {
	t.Run("unset secret falls back to the development default", func(t *testing.T) {
		unsetEnv(t, "JWT_SECRET")
		t.Setenv("ENV_FILE", "")

		cfg := Load()
		if cfg.JWT.Secret != DefaultJWTSecret {
			t.Errorf("expected default secret, got %q", cfg.JWT.Secret)
		}
		if !cfg.JWT.UsesDefaultSecret() {
			t.Error("expected UsesDefaultSecret to be true")
		}
	})

	t.Run("explicit secret is not flagged", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "a-real-secret")
		t.Setenv("ENV_FILE", "")

		if Load().JWT.UsesDefaultSecret() {
			t.Error("expected UsesDefaultSecret to be false")
		}
	})

	t.Run("empty secret counts as default", func(t *testing.T) {
		if !(JWTConfig{}).UsesDefaultSecret() {
			t.Error("expected empty secret to count as default")
		}
	})
}
