package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllPSEnvVars очищает все переменные окружения PS_* для чистого теста.
func clearAllPSEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"PS_PORT", "PS_STORAGE_DIR", "PS_USERS_DB", "PS_SECRET_KEY",
		"PS_TOKEN_TTL", "PS_ADMIN_USERNAME", "PS_ADMIN_PASSWORD",
		"PS_THUMBNAIL_SIZE", "PS_MAX_UPLOAD_SIZE",
		"PS_RECONCILE_INTERVAL", "PS_SWEEP_INTERVAL",
		"PS_TLS_CERT", "PS_TLS_KEY",
		"PS_LOG_LEVEL", "PS_LOG_FORMAT", "PS_SHUTDOWN_TIMEOUT",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"PS_STORAGE_DIR":    "/tmp/photos",
		"PS_SECRET_KEY":     "очень-длинный-тестовый-секрет",
		"PS_ADMIN_USERNAME": "admin",
		"PS_ADMIN_PASSWORD": "admin-password",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllPSEnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8000 {
		t.Errorf("Port: ожидалось 8000, получено %d", cfg.Port)
	}
	if cfg.UsersDB != filepath.Join("/tmp/photos", "users.db") {
		t.Errorf("UsersDB: ожидалось /tmp/photos/users.db, получено %q", cfg.UsersDB)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL: ожидалось 30m, получено %v", cfg.TokenTTL)
	}
	if cfg.ThumbnailSize != 256 {
		t.Errorf("ThumbnailSize: ожидалось 256, получено %d", cfg.ThumbnailSize)
	}
	if cfg.MaxUploadSize != 10*1024*1024*1024 {
		t.Errorf("MaxUploadSize: ожидалось 10 GiB, получено %d", cfg.MaxUploadSize)
	}
	if cfg.ReconcileInterval != 6*time.Hour {
		t.Errorf("ReconcileInterval: ожидалось 6h, получено %v", cfg.ReconcileInterval)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval: ожидалось 1h, получено %v", cfg.SweepInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось info, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось json, получено %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.TLSEnabled() {
		t.Error("TLSEnabled: без сертификатов должен быть false")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	cleanup := clearAllPSEnvVars(t)
	defer cleanup()

	required := []string{"PS_STORAGE_DIR", "PS_SECRET_KEY", "PS_ADMIN_USERNAME", "PS_ADMIN_PASSWORD"}
	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			vars := requiredEnvVars()
			delete(vars, missing)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_CustomValues(t *testing.T) {
	cleanup := clearAllPSEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PS_PORT"] = "9090"
	vars["PS_USERS_DB"] = "/var/lib/photo-server/users.db"
	vars["PS_TOKEN_TTL"] = "2h"
	vars["PS_THUMBNAIL_SIZE"] = "512"
	vars["PS_MAX_UPLOAD_SIZE"] = "1048576"
	vars["PS_RECONCILE_INTERVAL"] = "15m"
	vars["PS_SWEEP_INTERVAL"] = "30m"
	vars["PS_LOG_LEVEL"] = "debug"
	vars["PS_LOG_FORMAT"] = "text"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	if cfg.UsersDB != "/var/lib/photo-server/users.db" {
		t.Errorf("UsersDB: получено %q", cfg.UsersDB)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL: ожидалось 2h, получено %v", cfg.TokenTTL)
	}
	if cfg.ThumbnailSize != 512 {
		t.Errorf("ThumbnailSize: ожидалось 512, получено %d", cfg.ThumbnailSize)
	}
	if cfg.MaxUploadSize != 1048576 {
		t.Errorf("MaxUploadSize: ожидалось 1048576, получено %d", cfg.MaxUploadSize)
	}
	if cfg.ReconcileInterval != 15*time.Minute {
		t.Errorf("ReconcileInterval: ожидалось 15m, получено %v", cfg.ReconcileInterval)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось debug, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось text, получено %q", cfg.LogFormat)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cleanup := clearAllPSEnvVars(t)
	defer cleanup()

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"порт не число", "PS_PORT", "не-число"},
		{"порт вне диапазона", "PS_PORT", "70000"},
		{"короткий секрет", "PS_SECRET_KEY", "short"},
		{"отрицательный TTL", "PS_TOKEN_TTL", "-1h"},
		{"некорректный TTL", "PS_TOKEN_TTL", "полчаса"},
		{"слишком маленькая миниатюра", "PS_THUMBNAIL_SIZE", "8"},
		{"слишком большая миниатюра", "PS_THUMBNAIL_SIZE", "10000"},
		{"отрицательный размер загрузки", "PS_MAX_UPLOAD_SIZE", "-1"},
		{"некорректный интервал сверки", "PS_RECONCILE_INTERVAL", "шесть часов"},
		{"некорректный уровень логов", "PS_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "PS_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := requiredEnvVars()
			vars[tt.key] = tt.val
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_TLSPairValidation(t *testing.T) {
	cleanup := clearAllPSEnvVars(t)
	defer cleanup()

	// Сертификат без ключа — ошибка.
	vars := requiredEnvVars()
	vars["PS_TLS_CERT"] = "/tmp/tls.crt"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка: PS_TLS_CERT без PS_TLS_KEY")
	}

	// Полная пара — TLS включён.
	vars["PS_TLS_KEY"] = "/tmp/tls.key"
	cleanupPair := setEnvVars(t, vars)
	defer cleanupPair()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !cfg.TLSEnabled() {
		t.Error("TLSEnabled: с парой сертификат/ключ должен быть true")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"ERROR", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q): ожидалась ошибка", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q): неожиданная ошибка: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидалось %v", tt.in, got, tt.want)
		}
	}
}
