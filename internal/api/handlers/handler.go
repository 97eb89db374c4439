// Пакет handlers — HTTP-обработчики Photo Server.
// handler.go — сборка обработчиков и маршрутизация.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/photoserver/internal/api/middleware"
	"github.com/bigkaa/photoserver/internal/config"
	"github.com/bigkaa/photoserver/internal/service"
	"github.com/bigkaa/photoserver/internal/storage/filestore"
	"github.com/bigkaa/photoserver/internal/storage/userstore"
)

// Handler — все HTTP-обработчики приложения.
type Handler struct {
	cfg     *config.Config
	auth    *service.AuthService
	users   *userstore.Store
	uploads *service.UploadService
	query   *service.QueryService
	photos  *service.PhotoService
	store   *filestore.FileStore
	health  *HealthHandler
	logger  *slog.Logger
}

// New создаёт обработчики поверх сервисного слоя.
func New(
	cfg *config.Config,
	auth *service.AuthService,
	users *userstore.Store,
	uploads *service.UploadService,
	query *service.QueryService,
	photos *service.PhotoService,
	store *filestore.FileStore,
	health *HealthHandler,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		cfg:     cfg,
		auth:    auth,
		users:   users,
		uploads: uploads,
		query:   query,
		photos:  photos,
		store:   store,
		health:  health,
		logger:  logger.With(slog.String("component", "handlers")),
	}
}

// Routes собирает маршруты приложения.
// Публичные endpoints (token, health, metrics) монтируются без
// аутентификации, всё остальное — за JWT middleware.
func (h *Handler) Routes(jwtAuth *middleware.JWTAuth) chi.Router {
	r := chi.NewRouter()

	// Публичные endpoints
	r.Post("/token", h.Token)
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Защищённые endpoints
	r.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())

		r.Get("/users/me", h.CurrentUser)

		r.Post("/upload", h.Upload)

		r.Get("/photos", h.ListPhotos)
		r.Post("/photos/delete-multiple", h.DeletePhotos)
		r.Get("/photos/{folder}/{filename}", h.GetPhoto)
		r.Delete("/photos/{folder}/{filename}", h.DeletePhoto)
		r.Post("/photos/{folder}/{filename}/favorite", h.ToggleFavorite)

		r.Get("/uploads/{folder}/{filename}", h.ServeOriginal)
		r.Get("/uploads/{folder}/thumbnails/{filename}", h.ServeThumbnail)

		// Административные endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/users", h.ListUsers)
			r.Post("/admin/create-user", h.CreateUser)
			r.Post("/api/update-admin-status", h.UpdateAdminStatus)
		})
	})

	return r
}

// writeJSON сериализует ответ с указанным статус-кодом.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// validPathSegment проверяет, что значение — одно имя файла или папки:
// непустое, без разделителей пути и без ссылок на родительскую
// директорию. Адресация за пределы корня хранилища невозможна.
func validPathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}
