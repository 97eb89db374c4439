// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/photoserver/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// UserStoreChecker — интерфейс проверки доступности базы пользователей.
type UserStoreChecker interface {
	Ping() error
}

// DiskUsageFn возвращает total, used, available хранилища в байтах.
type DiskUsageFn func() (total, used, available int64, err error)

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// storageDir — путь к корню файлового хранилища (для проверки FS)
	storageDir string
	// users — база пользователей для проверки готовности
	users UserStoreChecker
	// diskUsage — необязательный источник информации о ёмкости диска
	diskUsage DiskUsageFn
}

// NewHealthHandler создаёт обработчик health endpoints.
// diskUsage может быть nil — тогда ёмкость диска не сообщается.
func NewHealthHandler(storageDir string, users UserStoreChecker, diskUsage DiskUsageFn) *HealthHandler {
	return &HealthHandler{
		version:    config.Version,
		storageDir: storageDir,
		users:      users,
		diskUsage:  diskUsage,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "photo-server",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: файловое хранилище на запись, базу пользователей.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	fsCheck := h.checkStorage()
	if fsCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	usersCheck := h.checkUsers()
	if usersCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "photo-server",
		"checks": map[string]any{
			"storage": fsCheck,
			"users":   usersCheck,
		},
	})
}

// checkStorage проверяет доступность корня хранилища на запись.
func (h *HealthHandler) checkStorage() map[string]any {
	if h.storageDir == "" {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}

	testFile := filepath.Join(h.storageDir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Хранилище недоступно для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	check := map[string]any{
		"status": "ok",
	}

	if h.diskUsage != nil {
		total, used, available, err := h.diskUsage()
		if err == nil {
			check["disk_total_bytes"] = total
			check["disk_used_bytes"] = used
			check["disk_available_bytes"] = available
		}
	}

	return check
}

// checkUsers проверяет доступность базы пользователей.
func (h *HealthHandler) checkUsers() map[string]any {
	if h.users == nil {
		return map[string]any{
			"status":  "ok",
			"message": "Проверка не настроена",
		}
	}

	if err := h.users.Ping(); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "База пользователей недоступна: " + err.Error(),
		}
	}

	return map[string]any{
		"status": "ok",
	}
}
