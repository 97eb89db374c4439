// Точка входа Photo Server — self-hosted сервера фотографий.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/bigkaa/photoserver/internal/api/handlers"
	"github.com/bigkaa/photoserver/internal/api/middleware"
	"github.com/bigkaa/photoserver/internal/config"
	"github.com/bigkaa/photoserver/internal/server"
	"github.com/bigkaa/photoserver/internal/service"
	"github.com/bigkaa/photoserver/internal/storage/filestore"
	"github.com/bigkaa/photoserver/internal/storage/metastore"
	"github.com/bigkaa/photoserver/internal/storage/userstore"
)

func main() {
	// .env — необязательный, удобен для локальной разработки
	_ = godotenv.Load()

	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Photo Server запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_dir", cfg.StorageDir),
	)

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	store, err := filestore.New(cfg.StorageDir)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Хранилище метаданных (metadata.json)
	meta, err := metastore.New(cfg.StorageDir, logger)
	if err != nil {
		logger.Error("Ошибка инициализации метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. База пользователей
	users, err := userstore.Open(cfg.UsersDB, cfg.AdminUsername, cfg.AdminPassword, logger)
	if err != nil {
		logger.Error("Ошибка открытия базы пользователей", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Сервисы
	thumbnailer := service.NewThumbnailer(store, cfg.ThumbnailSize, logger)
	reconciler := service.NewReconciler(store, meta, logger)
	uploadSvc := service.NewUploadService(store, meta, thumbnailer, logger)
	querySvc := service.NewQueryService(reconciler, logger)
	photoSvc := service.NewPhotoService(store, meta, thumbnailer, reconciler, logger)
	authSvc := service.NewAuthService(users, cfg.SecretKey, cfg.TokenTTL, logger)

	// 5. Фоновые процессы
	ctx := context.Background()

	// 5.1 Reconciliation — периодическая сверка metadata.json с диском
	reconcileSvc := service.NewReconcileService(reconciler, cfg.ReconcileInterval, logger)
	reconcileSvc.Start(ctx)

	// 5.2 Sweep — очистка осиротевших миниатюр
	sweepSvc := service.NewSweepService(store, thumbnailer, cfg.SweepInterval, logger)
	sweepSvc.Start(ctx)

	// 6. Handlers и middleware
	healthHandler := handlers.NewHealthHandler(cfg.StorageDir, users, diskUsageFn(cfg.StorageDir))
	handler := handlers.New(cfg, authSvc, users, uploadSvc, querySvc, photoSvc, store, healthHandler, logger)
	jwtAuth := middleware.NewJWTAuth(authSvc, users, logger)

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, handler.Routes(jwtAuth))

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	reconcileSvc.Stop()
	sweepSvc.Stop()

	logger.Info("Photo Server остановлен")
}

// diskUsageFn возвращает функцию для получения информации об ёмкости диска.
func diskUsageFn(storageDir string) handlers.DiskUsageFn {
	return func() (int64, int64, int64, error) {
		return getDiskUsage(storageDir)
	}
}
