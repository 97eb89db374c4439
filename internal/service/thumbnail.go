// thumbnail.go — генерация JPEG-миниатюр для изображений.
//
// Миниатюры хранятся в подпапке thumbnails/ внутри папки владельца
// под тем же именем, что и оригинал. Генерация идемпотентна:
// существующая миниатюра не перегенерируется, даже если оригинал
// изменился (её нужно сначала удалить).
package service

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/photoserver/internal/storage/filestore"
)

// DefaultThumbnailSize — максимальный размер стороны миниатюры по умолчанию.
const DefaultThumbnailSize = 256

// thumbnailJPEGQuality — качество JPEG миниатюр.
const thumbnailJPEGQuality = 85

// Prometheus метрики генерации миниатюр
var (
	// thumbnailsGeneratedTotal — количество сгенерированных миниатюр.
	thumbnailsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_thumbnails_generated_total",
		Help: "Общее количество сгенерированных миниатюр",
	})

	// thumbnailErrorsTotal — количество ошибок генерации миниатюр.
	thumbnailErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_thumbnail_errors_total",
		Help: "Общее количество ошибок генерации миниатюр",
	})

	// thumbnailDurationSeconds — длительность генерации миниатюры.
	thumbnailDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ps_thumbnail_duration_seconds",
		Help:    "Длительность генерации миниатюры в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
)

// Thumbnailer — генератор миниатюр.
type Thumbnailer struct {
	store   *filestore.FileStore
	maxSize int
	logger  *slog.Logger
}

// NewThumbnailer создаёт генератор миниатюр.
// maxSize <= 0 заменяется на DefaultThumbnailSize.
func NewThumbnailer(store *filestore.FileStore, maxSize int, logger *slog.Logger) *Thumbnailer {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}
	return &Thumbnailer{
		store:   store,
		maxSize: maxSize,
		logger:  logger.With(slog.String("component", "thumbnailer")),
	}
}

// Generate создаёт миниатюру для оригинала folder/filename.
// Возвращает путь к миниатюре. Если миниатюра уже существует,
// возвращает её путь без перегенерации.
//
// Ошибки генерации не фатальны для вызывающего кода: загрузка
// продолжается без миниатюры (has_thumbnail=false).
func (t *Thumbnailer) Generate(folder, filename string) (string, error) {
	target := t.store.ThumbnailPath(folder, filename)

	// Идемпотентность: существующая миниатюра не перезаписывается.
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	timer := prometheus.NewTimer(thumbnailDurationSeconds)
	defer timer.ObserveDuration()

	if err := t.store.EnsureThumbnailsDir(folder); err != nil {
		thumbnailErrorsTotal.Inc()
		return "", err
	}

	original := t.store.FilePath(folder, filename)

	// AutoOrientation применяет поворот из EXIF до изменения размера.
	img, err := imaging.Open(original, imaging.AutoOrientation(true))
	if err != nil {
		thumbnailErrorsTotal.Inc()
		return "", fmt.Errorf("ошибка открытия изображения %s: %w", original, err)
	}

	// Приводим к RGB: изображения с альфа-каналом или палитрой
	// накладываются на белый фон, иначе прозрачные области
	// стали бы чёрными в JPEG.
	bounds := img.Bounds()
	flat := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flat = imaging.Paste(flat, img, image.Pt(0, 0))

	thumb := imaging.Fit(flat, t.maxSize, t.maxSize, imaging.Lanczos)

	// Кодируем явно в JPEG: imaging.Save выбирает кодек по расширению
	// файла, а миниатюра носит имя оригинала (в том числе .png).
	if err := t.saveJPEG(thumb, target); err != nil {
		thumbnailErrorsTotal.Inc()
		// Неполная миниатюра не должна остаться на диске.
		if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
			t.logger.Warn("Не удалось удалить неполную миниатюру",
				slog.String("path", target),
				slog.String("error", rmErr.Error()),
			)
		}
		return "", fmt.Errorf("ошибка сохранения миниатюры %s: %w", target, err)
	}

	thumbnailsGeneratedTotal.Inc()

	t.logger.Debug("Миниатюра создана",
		slog.String("folder", folder),
		slog.String("filename", filename),
		slog.Int("max_size", t.maxSize),
	)

	return target, nil
}

// saveJPEG записывает изображение в target как JPEG качества
// thumbnailJPEGQuality независимо от расширения файла.
func (t *Thumbnailer) saveJPEG(img image.Image, target string) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Delete удаляет миниатюру файла folder/filename.
// Отсутствие миниатюры не считается ошибкой: удаление всегда
// приводит к состоянию «миниатюры нет».
func (t *Thumbnailer) Delete(folder, filename string) error {
	target := t.store.ThumbnailPath(folder, filename)

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("ошибка удаления миниатюры %s: %w", target, err)
	}

	t.logger.Debug("Миниатюра удалена",
		slog.String("folder", folder),
		slog.String("filename", filename),
	)

	return nil
}
