// Пакет config — загрузка и валидация конфигурации Photo Server
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Photo Server.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к корневой директории хранилища файлов
	StorageDir string
	// Путь к файлу базы пользователей SQLite
	UsersDB string
	// Секрет подписи JWT (HS256)
	SecretKey string
	// Срок действия выпускаемых токенов
	TokenTTL time.Duration
	// Имя закреплённого администратора
	AdminUsername string
	// Пароль закреплённого администратора (для посева при первом запуске)
	AdminPassword string
	// Максимальный размер стороны миниатюры в пикселях
	ThumbnailSize int
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Интервал фоновой сверки metadata.json с диском
	ReconcileInterval time.Duration
	// Интервал фоновой очистки осиротевших миниатюр
	SweepInterval time.Duration
	// Путь к TLS сертификату (опционально; пустой — HTTP без TLS)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// PS_PORT — порт HTTP-сервера (по умолчанию 8000)
	port, err := getEnvInt("PS_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("PS_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PS_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// PS_STORAGE_DIR — обязательный
	cfg.StorageDir, err = getEnvRequired("PS_STORAGE_DIR")
	if err != nil {
		return nil, err
	}

	// PS_USERS_DB — путь к базе пользователей
	// (по умолчанию users.db внутри хранилища)
	cfg.UsersDB = getEnvDefault("PS_USERS_DB", "")
	if cfg.UsersDB == "" {
		cfg.UsersDB = filepath.Join(cfg.StorageDir, "users.db")
	}

	// PS_SECRET_KEY — обязательный, секрет подписи JWT
	cfg.SecretKey, err = getEnvRequired("PS_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	if len(cfg.SecretKey) < 16 {
		return nil, fmt.Errorf("PS_SECRET_KEY: длина секрета %d меньше минимальной (16 символов)", len(cfg.SecretKey))
	}

	// PS_TOKEN_TTL — срок действия токенов (по умолчанию 30m)
	cfg.TokenTTL, err = getEnvDuration("PS_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PS_TOKEN_TTL: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("PS_TOKEN_TTL: значение должно быть положительным")
	}

	// PS_ADMIN_USERNAME — обязательный
	cfg.AdminUsername, err = getEnvRequired("PS_ADMIN_USERNAME")
	if err != nil {
		return nil, err
	}

	// PS_ADMIN_PASSWORD — обязательный
	cfg.AdminPassword, err = getEnvRequired("PS_ADMIN_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PS_THUMBNAIL_SIZE — размер миниатюр (по умолчанию 256)
	thumbSize, err := getEnvInt("PS_THUMBNAIL_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("PS_THUMBNAIL_SIZE: %w", err)
	}
	if thumbSize < 16 || thumbSize > 4096 {
		return nil, fmt.Errorf("PS_THUMBNAIL_SIZE: значение %d вне допустимого диапазона 16-4096", thumbSize)
	}
	cfg.ThumbnailSize = thumbSize

	// PS_MAX_UPLOAD_SIZE — максимальный размер загрузки (по умолчанию 10 GiB)
	maxUpload, err := getEnvInt64("PS_MAX_UPLOAD_SIZE", 10*1024*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("PS_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("PS_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}
	cfg.MaxUploadSize = maxUpload

	// PS_RECONCILE_INTERVAL — интервал фоновой сверки (по умолчанию 6h)
	cfg.ReconcileInterval, err = getEnvDuration("PS_RECONCILE_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PS_RECONCILE_INTERVAL: %w", err)
	}

	// PS_SWEEP_INTERVAL — интервал очистки миниатюр (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvDuration("PS_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PS_SWEEP_INTERVAL: %w", err)
	}

	// PS_TLS_CERT / PS_TLS_KEY — опциональны, но только парой
	cfg.TLSCert = getEnvDefault("PS_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("PS_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("PS_TLS_CERT и PS_TLS_KEY должны быть заданы вместе")
	}

	// PS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PS_LOG_LEVEL: %w", err)
	}

	// PS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// PS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// TLSEnabled возвращает true, если настроен TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
