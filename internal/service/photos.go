// photos.go — операции над отдельными фотографиями:
// получение, удаление, переключение флага избранного.
package service

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/storage/filestore"
	"github.com/bigkaa/photoserver/internal/storage/metastore"
)

// ErrPhotoNotFound — запись не найдена или недоступна запрашивающему.
// Отказ в доступе намеренно неотличим от отсутствия записи: ответ
// не должен раскрывать существование чужих файлов.
var ErrPhotoNotFound = errors.New("фотография не найдена")

// photoDeletesTotal — количество удалений фотографий по результату.
var photoDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ps_photo_deletes_total",
	Help: "Общее количество операций удаления фотографий",
}, []string{"status"})

// PhotoService — операции над отдельными фотографиями.
type PhotoService struct {
	store       *filestore.FileStore
	meta        *metastore.Store
	thumbnailer *Thumbnailer
	reconciler  *Reconciler
	logger      *slog.Logger
}

// NewPhotoService создаёт сервис операций над фотографиями.
func NewPhotoService(
	store *filestore.FileStore,
	meta *metastore.Store,
	thumbnailer *Thumbnailer,
	reconciler *Reconciler,
	logger *slog.Logger,
) *PhotoService {
	return &PhotoService{
		store:       store,
		meta:        meta,
		thumbnailer: thumbnailer,
		reconciler:  reconciler,
		logger:      logger.With(slog.String("component", "photos")),
	}
}

// Get возвращает одну запись по ключу folder/filename.
// Перед выборкой выполняется reconciliation, поэтому запись
// отражает фактическое состояние диска.
func (p *PhotoService) Get(viewer model.Viewer, folder, filename string) (*PhotoView, error) {
	if !viewer.CanSee(folder) {
		return nil, ErrPhotoNotFound
	}

	records, err := p.reconciler.Reconcile("")
	if err != nil {
		return nil, err
	}

	key := model.RecordKey(folder, filename)
	for _, rec := range records {
		if rec.Key() == key {
			return decorate(rec), nil
		}
	}
	return nil, ErrPhotoNotFound
}

// Delete удаляет файл, его миниатюру и запись метаданных.
// Возвращает ErrPhotoNotFound и когда записи нет, и когда у
// запрашивающего нет прав на её удаление.
func (p *PhotoService) Delete(viewer model.Viewer, folder, filename string) error {
	if !viewer.CanDelete(folder) {
		photoDeletesTotal.WithLabelValues("denied").Inc()
		return ErrPhotoNotFound
	}

	key := model.RecordKey(folder, filename)

	err := p.meta.WithLock(func() error {
		records := p.meta.Load()

		_, hasRecord := records[key]
		if !hasRecord && !p.store.FileExists(folder, filename) {
			return ErrPhotoNotFound
		}

		if err := p.store.DeleteFile(folder, filename); err != nil {
			return err
		}

		if model.IsImageFile(filename) {
			if err := p.thumbnailer.Delete(folder, filename); err != nil {
				// Оригинал уже удалён, оставшаяся миниатюра
				// будет подобрана фоновой очисткой.
				p.logger.Warn("Миниатюра не удалена",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		}

		if hasRecord {
			delete(records, key)
			return p.meta.Save(records)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			photoDeletesTotal.WithLabelValues("not_found").Inc()
		} else {
			photoDeletesTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	photoDeletesTotal.WithLabelValues("success").Inc()
	p.logger.Info("Фотография удалена",
		slog.String("key", key),
		slog.String("deleted_by", viewer.Username),
	)
	return nil
}

// DeleteMany удаляет несколько файлов по ключам "folder/filename".
// Возвращает списки удалённых ключей и ключей с ошибками.
// Частичный успех — нормальный исход операции.
func (p *PhotoService) DeleteMany(viewer model.Viewer, keys []string) (deleted, failed []string) {
	for _, key := range keys {
		folder, filename, ok := splitKey(key)
		if !ok {
			failed = append(failed, key)
			continue
		}
		if err := p.Delete(viewer, folder, filename); err != nil {
			failed = append(failed, key)
			continue
		}
		deleted = append(deleted, key)
	}
	return deleted, failed
}

// ToggleFavorite инвертирует флаг избранного и возвращает
// обновлённую запись. Доступно для всех видимых записей,
// включая общую папку.
func (p *PhotoService) ToggleFavorite(viewer model.Viewer, folder, filename string) (*model.PhotoRecord, error) {
	if !viewer.CanSee(folder) {
		return nil, ErrPhotoNotFound
	}

	key := model.RecordKey(folder, filename)
	var updated *model.PhotoRecord

	err := p.meta.WithLock(func() error {
		records := p.meta.Load()

		rec, ok := records[key]
		if !ok {
			return ErrPhotoNotFound
		}

		rec.IsFavorite = !rec.IsFavorite
		updated = rec.Clone()
		return p.meta.Save(records)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Флаг избранного переключён",
		slog.String("key", key),
		slog.Bool("is_favorite", updated.IsFavorite),
	)
	return updated, nil
}

// splitKey разбирает ключ "folder/filename". Ключи с лишними
// разделителями или ссылками на родительскую директорию невалидны.
func splitKey(key string) (folder, filename string, ok bool) {
	folder, filename, ok = strings.Cut(key, "/")
	if !ok || folder == "" || filename == "" {
		return folder, filename, false
	}
	if folder == "." || folder == ".." || filename == "." || filename == ".." {
		return folder, filename, false
	}
	if strings.ContainsAny(filename, `/\`) || strings.ContainsRune(folder, '\\') {
		return folder, filename, false
	}
	return folder, filename, true
}
