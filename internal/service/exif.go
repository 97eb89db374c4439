// exif.go — извлечение EXIF-метаданных из изображений.
//
// Извлечение всегда best-effort: любая ошибка декодирования или
// отсутствие EXIF-сегмента даёт пустые метаданные, а не ошибку.
package service

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/bigkaa/photoserver/internal/domain/model"
)

// ExtractExif читает EXIF-поля изображения по указанному пути.
// Возвращает пустую структуру, если файл не открылся, EXIF
// отсутствует или повреждён. Отдельные нечитаемые теги пропускаются.
func ExtractExif(path string, logger *slog.Logger) model.ExifMetadata {
	var meta model.ExifMetadata

	f, err := os.Open(path)
	if err != nil {
		logger.Debug("EXIF: не удалось открыть файл",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return meta
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Отсутствие EXIF — нормальная ситуация (PNG, скриншоты).
		logger.Debug("EXIF: метаданные не найдены",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return meta
	}

	meta.CameraMake = exifString(x, exif.Make)
	meta.CameraModel = exifString(x, exif.Model)

	if dt, err := x.DateTime(); err == nil {
		meta.DateTaken = dt.Format("2006-01-02T15:04:05")
	}

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil {
			meta.ISO = iso
		}
	}

	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			if num == 1 {
				meta.ExposureTime = fmt.Sprintf("1/%d", den)
			} else {
				meta.ExposureTime = fmt.Sprintf("%d/%d", num, den)
			}
		}
	}

	if tag, err := x.Get(exif.FNumber); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			meta.FNumber = fmt.Sprintf("f/%.1f", float64(num)/float64(den))
		}
	}

	if tag, err := x.Get(exif.FocalLength); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			meta.FocalLength = fmt.Sprintf("%.1fmm", float64(num)/float64(den))
		}
	}

	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if w, err := tag.Int(0); err == nil {
			meta.Width = w
		}
	}
	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if h, err := tag.Int(0); err == nil {
			meta.Height = h
		}
	}

	if _, _, err := x.LatLong(); err == nil {
		meta.HasGPS = true
	}

	return meta
}

// exifString читает строковый тег, пустая строка при ошибке.
func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return value
}
