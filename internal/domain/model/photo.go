// Пакет model — доменные модели Photo Server.
// PhotoRecord — единая структура метаданных фотографии, используется
// как in-memory представление и как формат записи в metadata.json.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PhotoRecord — метаданные одного файла в хранилище.
// Ключом записи в metadata.json служит FilePath ("folder/filename").
type PhotoRecord struct {
	// Filename — имя файла внутри своей папки
	Filename string `json:"filename"`

	// Folder — папка верхнего уровня: имя пользователя или "global"
	Folder string `json:"folder"`

	// FilePath — составной ключ "folder/filename", уникален в хранилище
	FilePath string `json:"file_path"`

	// UploadedBy — имя загрузившего пользователя.
	// "unknown" для файлов, обнаруженных reconciliation в общей папке.
	UploadedBy string `json:"uploaded_by"`

	// UploadDate — дата загрузки или обнаружения, ISO-8601.
	// Для обнаруженных файлов берётся время изменения из файловой системы.
	UploadDate string `json:"upload_date"`

	// FileSize — размер файла в байтах
	FileSize int64 `json:"file_size"`

	// Size — человекочитаемый размер (производное от FileSize)
	Size string `json:"size"`

	// FileType — расширение файла в нижнем регистре, без точки
	FileType string `json:"file_type"`

	// IsFavorite — флаг избранного, меняется только операцией toggle
	IsFavorite bool `json:"is_favorite"`

	// HasThumbnail — true после успешной генерации миниатюры.
	// Не перепроверяется постоянно: возможна устаревшая отметка,
	// если миниатюру удалили в обход сервера.
	HasThumbnail bool `json:"has_thumbnail"`

	// Metadata — EXIF-поля, заполняются best-effort только для изображений
	Metadata ExifMetadata `json:"metadata"`
}

// ExifMetadata — опциональные EXIF-поля изображения.
// Пустая структура сериализуется как {}.
type ExifMetadata struct {
	CameraMake   string `json:"camera_make,omitempty"`
	CameraModel  string `json:"camera_model,omitempty"`
	DateTaken    string `json:"date_taken,omitempty"`
	ISO          int    `json:"iso,omitempty"`
	ExposureTime string `json:"exposure_time,omitempty"`
	FNumber      string `json:"f_number,omitempty"`
	FocalLength  string `json:"focal_length,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	HasGPS       bool   `json:"has_gps,omitempty"`
}

// IsEmpty возвращает true, если ни одно EXIF-поле не заполнено.
func (m ExifMetadata) IsEmpty() bool {
	return m == ExifMetadata{}
}

// RecordKey строит составной ключ "folder/filename" для metadata.json.
// Разделитель всегда "/" независимо от ОС.
func RecordKey(folder, filename string) string {
	return folder + "/" + filename
}

// Key возвращает ключ записи в metadata.json.
func (p *PhotoRecord) Key() string {
	return RecordKey(p.Folder, p.Filename)
}

// Clone возвращает глубокую копию записи.
func (p *PhotoRecord) Clone() *PhotoRecord {
	copied := *p
	return &copied
}

// HumanSize форматирует размер в байтах в человекочитаемую строку.
// Двоичные единицы: bytes/KB/MB/GB/TB, делитель 1024.
func HumanSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d bytes", size)
	}
	value := float64(size)
	for _, unit := range []string{"KB", "MB", "GB", "TB"} {
		value /= 1024
		if value < 1024 || unit == "TB" {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
	}
	return fmt.Sprintf("%d bytes", size)
}

// imageExtensions — расширения, для которых генерируются миниатюры
// и извлекается EXIF.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".bmp": true, ".webp": true,
}

// videoExtensions — расширения видеофайлов.
var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".ogg": true,
	".mov": true, ".avi": true, ".mkv": true,
}

// IsImageFile проверяет по расширению, является ли файл изображением.
func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsVideoFile проверяет по расширению, является ли файл видео.
func IsVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// FileTypeOf возвращает расширение файла в нижнем регистре без точки.
func FileTypeOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
