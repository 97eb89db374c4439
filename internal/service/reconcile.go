// reconcile.go — сверка metadata.json с фактическим содержимым диска.
//
// Reconciliation сравнивает:
//   - Файлы на диске с записями в metadata.json
//   - Записи в metadata.json с физическими файлами
//
// Действия:
//   - файл на диске без записи: запись синтезируется из данных stat
//   - запись без файла на диске: запись удаляется
//   - запись и файл есть: дозаполняются отсутствующие производные поля
//
// Сверка выполняется при каждом запросе списка фотографий и
// дополнительно фоновой горутиной с периодическим тикером
// (PS_RECONCILE_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/storage/filestore"
	"github.com/bigkaa/photoserver/internal/storage/metastore"
)

// Prometheus метрики Reconciliation
var (
	// reconcileRunsTotal — количество запусков reconciliation.
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_reconcile_runs_total",
		Help: "Общее количество запусков reconciliation",
	})

	// reconcileChangesTotal — количество изменений по типу (added, removed, backfilled).
	reconcileChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ps_reconcile_changes_total",
		Help: "Общее количество изменений metadata.json при reconciliation",
	}, []string{"type"})

	// reconcileDurationSeconds — длительность выполнения reconciliation.
	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ps_reconcile_duration_seconds",
		Help:    "Длительность выполнения reconciliation в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// Reconciler — сверка метаданных с файловой системой.
type Reconciler struct {
	store  *filestore.FileStore
	meta   *metastore.Store
	logger *slog.Logger
}

// NewReconciler создаёт Reconciler.
func NewReconciler(store *filestore.FileStore, meta *metastore.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		meta:   meta,
		logger: logger.With(slog.String("component", "reconcile")),
	}
}

// ReconcileStats — итог одного прохода сверки.
type ReconcileStats struct {
	// Added — синтезировано записей для файлов без метаданных
	Added int
	// Removed — удалено записей без файлов на диске
	Removed int
	// Backfilled — записей с дозаполненными производными полями
	Backfilled int
}

// Changed возвращает true, если сверка изменила metadata.json.
func (s ReconcileStats) Changed() bool {
	return s.Added > 0 || s.Removed > 0 || s.Backfilled > 0
}

// Reconcile выполняет один проход сверки и возвращает записи,
// отсортированные по дате загрузки по убыванию.
//
// viewer задаёт фильтр результата: непустое имя оставляет только
// записи из папки этого пользователя, пустое имя возвращает все
// записи (административный просмотр). Фильтр применяется после
// сверки: сама сверка всегда обходит всё хранилище.
//
// Ошибки перечисления отдельной папки не фатальны: папка
// пропускается, остальные обрабатываются.
func (r *Reconciler) Reconcile(viewer string) ([]*model.PhotoRecord, error) {
	timer := prometheus.NewTimer(reconcileDurationSeconds)
	defer timer.ObserveDuration()
	reconcileRunsTotal.Inc()

	var result []*model.PhotoRecord

	err := r.meta.WithLock(func() error {
		records := r.meta.Load()

		onDisk := r.scanDisk()
		stats := r.apply(records, onDisk)

		if stats.Changed() {
			if err := r.meta.Save(records); err != nil {
				return err
			}
			reconcileChangesTotal.WithLabelValues("added").Add(float64(stats.Added))
			reconcileChangesTotal.WithLabelValues("removed").Add(float64(stats.Removed))
			reconcileChangesTotal.WithLabelValues("backfilled").Add(float64(stats.Backfilled))

			r.logger.Info("Reconciliation изменила метаданные",
				slog.Int("added", stats.Added),
				slog.Int("removed", stats.Removed),
				slog.Int("backfilled", stats.Backfilled),
				slog.Int("total", len(records)),
			)
		}

		for _, rec := range records {
			if viewer != "" && rec.Folder != viewer {
				continue
			}
			result = append(result, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Сортировка по дате по убыванию. Пустая дата сравнивается как
	// пустая строка и оказывается в конце.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UploadDate > result[j].UploadDate
	})

	return result, nil
}

// scanDisk возвращает множество ключей "folder/filename" всех обычных
// файлов хранилища. Подпапки thumbnails и metadata.json не входят.
func (r *Reconciler) scanDisk() map[string]bool {
	onDisk := make(map[string]bool)

	folders, err := r.store.ListFolders()
	if err != nil {
		r.logger.Error("Ошибка перечисления папок хранилища",
			slog.String("error", err.Error()),
		)
		return onDisk
	}

	for _, folder := range folders {
		files, err := r.store.ListFiles(folder)
		if err != nil {
			r.logger.Warn("Папка пропущена при reconciliation",
				slog.String("folder", folder),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, filename := range files {
			onDisk[model.RecordKey(folder, filename)] = true
		}
	}

	return onDisk
}

// apply приводит records в соответствие с множеством файлов onDisk.
func (r *Reconciler) apply(records map[string]*model.PhotoRecord, onDisk map[string]bool) ReconcileStats {
	var stats ReconcileStats

	// Файлы без записей: синтезируем записи.
	for key := range onDisk {
		if _, ok := records[key]; ok {
			continue
		}
		folder, filename, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		records[key] = r.synthesize(folder, filename)
		stats.Added++

		r.logger.Debug("Обнаружен файл без метаданных",
			slog.String("key", key),
		)
	}

	// Записи без файлов: удаляем.
	for key := range records {
		if !onDisk[key] {
			delete(records, key)
			stats.Removed++

			r.logger.Debug("Удалена запись без файла на диске",
				slog.String("key", key),
			)
		}
	}

	// Дозаполнение производных полей у старых записей.
	// Только отсутствующие поля: заполненные не трогаем.
	for key, rec := range records {
		backfilled := false
		if rec.Size == "" {
			rec.Size = model.HumanSize(rec.FileSize)
			backfilled = true
		}
		if rec.FilePath == "" {
			rec.FilePath = key
			backfilled = true
		}
		if rec.Folder == "" {
			folder, _, _ := strings.Cut(key, "/")
			rec.Folder = folder
			backfilled = true
		}
		if rec.FileType == "" && rec.Filename != "" {
			rec.FileType = model.FileTypeOf(rec.Filename)
			backfilled = true
		}
		if backfilled {
			stats.Backfilled++
		}
	}

	return stats
}

// synthesize строит запись для файла, обнаруженного на диске без
// метаданных. Дата берётся из времени изменения файла, загрузивший —
// имя папки ("unknown" для общей папки global).
func (r *Reconciler) synthesize(folder, filename string) *model.PhotoRecord {
	rec := &model.PhotoRecord{
		Filename:   filename,
		Folder:     folder,
		FilePath:   model.RecordKey(folder, filename),
		UploadedBy: model.ParseFolder(folder).DefaultUploader(),
		FileType:   model.FileTypeOf(filename),
	}

	if info, err := r.store.Stat(folder, filename); err == nil {
		rec.FileSize = info.Size()
		rec.UploadDate = info.ModTime().UTC().Format("2006-01-02T15:04:05")
	} else {
		r.logger.Warn("Не удалось получить атрибуты файла",
			slog.String("key", rec.FilePath),
			slog.String("error", err.Error()),
		)
	}
	rec.Size = model.HumanSize(rec.FileSize)

	if model.IsImageFile(filename) {
		rec.HasThumbnail = r.store.ThumbnailExists(folder, filename)
	}

	return rec
}

// ReconcileService — фоновая периодическая сверка хранилища.
type ReconcileService struct {
	reconciler *Reconciler
	interval   time.Duration
	logger     *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool       // сверка в процессе выполнения
	cancel    context.CancelFunc
}

// NewReconcileService создаёт фоновый сервис reconciliation.
func NewReconcileService(reconciler *Reconciler, interval time.Duration, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger.With(slog.String("component", "reconcile-service")),
	}
}

// Start запускает фоновую горутину с периодическим тикером.
func (rs *ReconcileService) Start(ctx context.Context) {
	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(rsCtx)

	rs.logger.Info("Фоновая reconciliation запущена",
		slog.String("interval", rs.interval.String()),
	)
}

// Stop останавливает фоновый процесс.
func (rs *ReconcileService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
	}
	rs.logger.Info("Фоновая reconciliation остановлена")
}

// IsInProgress возвращает true, если сверка выполняется.
func (rs *ReconcileService) IsInProgress() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.inProcess
}

// run — основной цикл фоновой горутины.
func (rs *ReconcileService) run(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл фоновой сверки по всему хранилищу.
// Потокобезопасен: если сверка уже выполняется, возвращает true (skipped).
func (rs *ReconcileService) RunOnce() bool {
	rs.mu.Lock()
	if rs.inProcess {
		rs.mu.Unlock()
		rs.logger.Warn("Reconciliation уже выполняется, пропуск")
		return true
	}
	rs.inProcess = true
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.inProcess = false
		rs.mu.Unlock()
	}()

	start := time.Now()
	if _, err := rs.reconciler.Reconcile(""); err != nil {
		rs.logger.Error("Ошибка фоновой reconciliation",
			slog.String("error", err.Error()),
		)
		return false
	}

	rs.logger.Debug("Фоновая reconciliation завершена",
		slog.Duration("duration", time.Since(start)),
	)
	return false
}
