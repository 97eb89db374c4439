// Пакет service — бизнес-логика Photo Server.
// upload.go — сервис загрузки файлов.
package service

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/storage/filestore"
	"github.com/bigkaa/photoserver/internal/storage/metastore"
)

// Prometheus метрики загрузки
var (
	// uploadsTotal — количество загрузок по результату.
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ps_uploads_total",
		Help: "Общее количество загрузок файлов",
	}, []string{"status"})

	// uploadBytesTotal — объём загруженных данных.
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_upload_bytes_total",
		Help: "Общий объём загруженных данных в байтах",
	})

	// uploadDurationSeconds — длительность загрузки (включая миниатюру).
	uploadDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ps_upload_duration_seconds",
		Help:    "Длительность загрузки файла в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})
)

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// DesiredFilename — желаемое имя файла; при коллизии имя меняется
	DesiredFilename string
	// Folder — папка назначения (имя пользователя или "global")
	Folder model.Folder
	// UploadedBy — имя загрузившего пользователя
	UploadedBy string
}

// TransferError — ошибка передачи данных при загрузке.
// Единственный фатальный класс ошибок загрузки: частично записанный
// файл к моменту возврата уже удалён, запись метаданных не создана.
type TransferError struct {
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("ошибка передачи файла: %s", e.Err.Error())
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// UploadService — сервис загрузки файлов.
//
// Поток обработки:
//  1. Потоковая запись файла на диск (с разрешением коллизий имён)
//  2. Создание PhotoRecord в metadata.json
//  3. Для изображений: извлечение EXIF и генерация миниатюры
//
// Шаг 3 выполняется best-effort: его ошибки логируются, но не
// проваливают загрузку.
type UploadService struct {
	store       *filestore.FileStore
	meta        *metastore.Store
	thumbnailer *Thumbnailer
	logger      *slog.Logger
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(
	store *filestore.FileStore,
	meta *metastore.Store,
	thumbnailer *Thumbnailer,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:       store,
		meta:        meta,
		thumbnailer: thumbnailer,
		logger:      logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает файл в хранилище и возвращает созданную запись.
// При ошибке передачи возвращает *TransferError.
func (s *UploadService) Upload(params UploadParams) (*model.PhotoRecord, error) {
	timer := prometheus.NewTimer(uploadDurationSeconds)
	defer timer.ObserveDuration()

	folder := params.Folder.Dir()

	saved, err := s.store.SaveFile(params.Reader, folder, params.DesiredFilename)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка сохранения файла",
			slog.String("folder", folder),
			slog.String("filename", params.DesiredFilename),
			slog.String("error", err.Error()),
		)
		return nil, &TransferError{Err: err}
	}

	record := &model.PhotoRecord{
		Filename:   saved.Filename,
		Folder:     folder,
		FilePath:   model.RecordKey(folder, saved.Filename),
		UploadedBy: params.UploadedBy,
		UploadDate: time.Now().UTC().Format("2006-01-02T15:04:05"),
		FileSize:   saved.Size,
		Size:       model.HumanSize(saved.Size),
		FileType:   model.FileTypeOf(saved.Filename),
	}

	// Для изображений: EXIF и миниатюра. Ошибки не фатальны.
	if model.IsImageFile(saved.Filename) {
		record.Metadata = ExtractExif(saved.FullPath, s.logger)

		if _, err := s.thumbnailer.Generate(folder, saved.Filename); err != nil {
			s.logger.Warn("Миниатюра не создана",
				slog.String("key", record.FilePath),
				slog.String("error", err.Error()),
			)
		} else {
			record.HasThumbnail = true
		}
	}

	if err := s.persist(record); err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(saved.Size))

	s.logger.Info("Файл загружен",
		slog.String("key", record.FilePath),
		slog.Int64("size", saved.Size),
		slog.String("uploaded_by", params.UploadedBy),
		slog.Bool("has_thumbnail", record.HasThumbnail),
	)

	return record, nil
}

// persist добавляет запись в metadata.json циклом load-modify-save.
func (s *UploadService) persist(record *model.PhotoRecord) error {
	return s.meta.WithLock(func() error {
		records := s.meta.Load()
		records[record.Key()] = record
		return s.meta.Save(records)
	})
}
