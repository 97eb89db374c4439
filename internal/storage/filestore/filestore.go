// Пакет filestore — операции с физическими файлами хранилища.
// Раскладка на диске:
//
//	<root>/<folder>/<filename>            — оригиналы
//	<root>/<folder>/thumbnails/<filename> — миниатюры
//	<root>/global/                        — общая папка
//
// Запись потоковая, фиксированными блоками по 4 МиБ. При ошибке
// передачи частично записанный файл удаляется.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/storage/metastore"
)

// ThumbnailsDir — имя поддиректории миниатюр внутри папки.
const ThumbnailsDir = "thumbnails"

// uploadChunkSize — размер блока потокового копирования (4 МиБ).
const uploadChunkSize = 4 << 20

// FileStore — доступ к файлам хранилища.
type FileStore struct {
	root string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// Filename — итоговое имя файла (может отличаться от желаемого
	// при коллизии)
	Filename string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — количество записанных байт
	Size int64
}

// New создаёт FileStore. Создаёт корень хранилища и общую папку,
// если они не существуют.
func New(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать корень хранилища %s: %w", root, err)
	}
	if err := os.MkdirAll(filepath.Join(root, model.SharedFolderDir), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать общую папку: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root возвращает корень хранилища.
func (fs *FileStore) Root() string {
	return fs.root
}

// FolderPath возвращает путь к папке на диске.
func (fs *FileStore) FolderPath(folder string) string {
	return filepath.Join(fs.root, folder)
}

// FilePath возвращает путь к оригиналу файла.
func (fs *FileStore) FilePath(folder, filename string) string {
	return filepath.Join(fs.root, folder, filename)
}

// ThumbnailPath возвращает путь к миниатюре файла.
func (fs *FileStore) ThumbnailPath(folder, filename string) string {
	return filepath.Join(fs.root, folder, ThumbnailsDir, filename)
}

// EnsureFolder создаёт папку, если она не существует.
func (fs *FileStore) EnsureFolder(folder string) error {
	if err := os.MkdirAll(fs.FolderPath(folder), 0o750); err != nil {
		return fmt.Errorf("не удалось создать папку %s: %w", folder, err)
	}
	return nil
}

// EnsureThumbnailsDir создаёт подпапку thumbnails/ в папке folder.
func (fs *FileStore) EnsureThumbnailsDir(folder string) error {
	dir := filepath.Join(fs.root, folder, ThumbnailsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию миниатюр %s: %w", dir, err)
	}
	return nil
}

// SaveFile записывает данные из reader в папку folder.
// Политика коллизий: существующее имя никогда не перезаписывается,
// вместо этого к имени добавляется суффикс с меткой времени
// (cat.jpg → cat_20260831_150405.jpg).
//
// Копирование потоковое, блоками по 4 МиБ. При любой ошибке чтения
// или записи частично записанный файл удаляется и ошибка
// возвращается вызывающему — это единственный фатальный класс
// ошибок загрузки.
func (fs *FileStore) SaveFile(reader io.Reader, folder, desiredFilename string) (*SaveResult, error) {
	if err := fs.EnsureFolder(folder); err != nil {
		return nil, err
	}

	filename := fs.resolveCollision(folder, desiredFilename)
	fullPath := fs.FilePath(folder, filename)

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла %s: %w", fullPath, err)
	}

	buf := make([]byte, uploadChunkSize)
	size, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		f.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("ошибка передачи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	return &SaveResult{
		Filename: filename,
		FullPath: fullPath,
		Size:     size,
	}, nil
}

// resolveCollision подбирает свободное имя файла в папке.
// Первая попытка — желаемое имя; при занятости добавляется метка
// времени; если занято и оно (загрузки в одну секунду) — короткий
// uuid-суффикс.
func (fs *FileStore) resolveCollision(folder, desiredFilename string) string {
	if !fs.FileExists(folder, desiredFilename) {
		return desiredFilename
	}

	ext := filepath.Ext(desiredFilename)
	name := strings.TrimSuffix(desiredFilename, ext)
	ts := time.Now().Format("20060102_150405")

	candidate := fmt.Sprintf("%s_%s%s", name, ts, ext)
	if !fs.FileExists(folder, candidate) {
		return candidate
	}

	return fmt.Sprintf("%s_%s_%s%s", name, ts, uuid.New().String()[:8], ext)
}

// DeleteFile удаляет оригинал файла.
// Возвращает nil, если файл уже не существует.
func (fs *FileStore) DeleteFile(folder, filename string) error {
	err := os.Remove(fs.FilePath(folder, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s/%s: %w", folder, filename, err)
	}
	return nil
}

// FileExists проверяет существование оригинала файла.
func (fs *FileStore) FileExists(folder, filename string) bool {
	info, err := os.Stat(fs.FilePath(folder, filename))
	return err == nil && info.Mode().IsRegular()
}

// ThumbnailExists проверяет наличие миниатюры файла.
func (fs *FileStore) ThumbnailExists(folder, filename string) bool {
	info, err := os.Stat(fs.ThumbnailPath(folder, filename))
	return err == nil && info.Mode().IsRegular()
}

// Stat возвращает информацию об оригинале файла.
func (fs *FileStore) Stat(folder, filename string) (os.FileInfo, error) {
	info, err := os.Stat(fs.FilePath(folder, filename))
	if err != nil {
		return nil, fmt.Errorf("ошибка stat %s/%s: %w", folder, filename, err)
	}
	return info, nil
}

// ListFolders возвращает отсортированный список папок верхнего уровня.
func (fs *FileStore) ListFolders() ([]string, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения корня хранилища: %w", err)
	}

	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		folders = append(folders, entry.Name())
	}

	sort.Strings(folders)
	return folders, nil
}

// ListFiles возвращает имена обычных файлов непосредственно внутри папки.
// Поддиректория thumbnails, metadata.json, скрытые и временные файлы
// не включаются.
func (fs *FileStore) ListFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(fs.FolderPath(folder))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения папки %s: %w", folder, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == metastore.MetadataFileName {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, name)
	}

	return files, nil
}

// ListThumbnails возвращает имена файлов в поддиректории миниатюр папки.
// Отсутствующая поддиректория — пустой список.
func (fs *FileStore) ListThumbnails(folder string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.FolderPath(folder), ThumbnailsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения миниатюр папки %s: %w", folder, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
