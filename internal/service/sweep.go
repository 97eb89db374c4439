// sweep.go — фоновая очистка осиротевших миниатюр.
//
// Sweep находит в подпапках thumbnails/ файлы, для которых больше
// нет оригинала, и удаляет их. Осиротевшие миниатюры появляются,
// когда оригинал удалён в обход сервера или когда удаление миниатюры
// при удалении оригинала не удалось.
//
// Запускается как горутина с периодическим тикером (PS_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/photoserver/internal/storage/filestore"
)

// Prometheus метрики Sweep
var (
	// sweepRunsTotal — количество запусков очистки.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_sweep_runs_total",
		Help: "Общее количество запусков очистки миниатюр",
	})

	// sweepThumbnailsDeletedTotal — количество удалённых осиротевших миниатюр.
	sweepThumbnailsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_sweep_thumbnails_deleted_total",
		Help: "Общее количество удалённых осиротевших миниатюр",
	})

	// sweepDurationSeconds — длительность выполнения очистки.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ps_sweep_duration_seconds",
		Help:    "Длительность выполнения очистки миниатюр в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// Scanned — количество просмотренных миниатюр
	Scanned int
	// Deleted — количество удалённых осиротевших миниатюр
	Deleted int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// SweepService — сервис фоновой очистки миниатюр.
type SweepService struct {
	store       *filestore.FileStore
	thumbnailer *Thumbnailer
	interval    time.Duration
	logger      *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewSweepService создаёт сервис очистки миниатюр.
func NewSweepService(
	store *filestore.FileStore,
	thumbnailer *Thumbnailer,
	interval time.Duration,
	logger *slog.Logger,
) *SweepService {
	return &SweepService{
		store:       store,
		thumbnailer: thumbnailer,
		interval:    interval,
		logger:      logger.With(slog.String("component", "sweep")),
	}
}

// Start запускает фоновую горутину очистки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (sw *SweepService) Start(ctx context.Context) {
	swCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel

	go sw.run(swCtx)

	sw.logger.Info("Очистка миниатюр запущена",
		slog.String("interval", sw.interval.String()),
	)
}

// Stop останавливает фоновый процесс очистки.
func (sw *SweepService) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.logger.Info("Очистка миниатюр остановлена")
}

// run — основной цикл фоновой горутины.
func (sw *SweepService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	sw.RunOnce()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл очистки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (sw *SweepService) RunOnce() *SweepResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	sw.logger.Debug("Очистка миниатюр начата")

	folders, err := sw.store.ListFolders()
	if err != nil {
		sw.logger.Error("Ошибка перечисления папок хранилища",
			slog.String("error", err.Error()),
		)
		result.Errors++
		return result
	}

	for _, folder := range folders {
		thumbnails, err := sw.store.ListThumbnails(folder)
		if err != nil {
			sw.logger.Warn("Папка пропущена при очистке миниатюр",
				slog.String("folder", folder),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		for _, filename := range thumbnails {
			result.Scanned++

			if sw.store.FileExists(folder, filename) {
				continue
			}

			if err := sw.thumbnailer.Delete(folder, filename); err != nil {
				sw.logger.Error("Ошибка удаления осиротевшей миниатюры",
					slog.String("folder", folder),
					slog.String("filename", filename),
					slog.String("error", err.Error()),
				)
				result.Errors++
				continue
			}

			sw.logger.Debug("Осиротевшая миниатюра удалена",
				slog.String("folder", folder),
				slog.String("filename", filename),
			)
			result.Deleted++
		}
	}

	result.Duration = time.Since(start)

	// Обновляем Prometheus метрики
	sweepRunsTotal.Inc()
	sweepThumbnailsDeletedTotal.Add(float64(result.Deleted))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	sw.logger.Info("Очистка миниатюр завершена",
		slog.Int("scanned", result.Scanned),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
