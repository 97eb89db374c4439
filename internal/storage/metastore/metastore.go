// Пакет metastore — JSON-индекс метаданных фотографий (metadata.json).
// Один документ на всё хранилище: отображение "folder/filename" → PhotoRecord.
// Обе операции цельнодокументные: Load читает весь файл, Save переписывает
// его полностью. Запись выполняется атомарно: temp → fsync → rename.
//
// Повреждённый или отсутствующий metadata.json трактуется как пустой
// индекс — доступность важнее точности, reconciliation восстановит
// записи из файловой системы при следующем чтении.
//
// Последовательность load-mutate-save защищена от параллельных писателей:
// sync.Mutex внутри процесса и flock на диске между процессами (WithLock).
package metastore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/bigkaa/photoserver/internal/domain/model"
)

// MetadataFileName — имя файла индекса в корне хранилища.
const MetadataFileName = "metadata.json"

// Store — хранилище JSON-индекса метаданных.
type Store struct {
	path   string
	mu     sync.Mutex
	fileLk *flock.Flock
	logger *slog.Logger
}

// New создаёт Store для указанного корня хранилища.
// Директория создаётся при необходимости.
func New(storageRoot string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(storageRoot, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать корень хранилища %s: %w", storageRoot, err)
	}

	path := filepath.Join(storageRoot, MetadataFileName)
	return &Store{
		path:   path,
		fileLk: flock.New(path + ".lock"),
		logger: logger.With(slog.String("component", "metastore")),
	}, nil
}

// Path возвращает путь к metadata.json.
func (s *Store) Path() string {
	return s.path
}

// WithLock выполняет fn под эксклюзивной блокировкой индекса:
// mutex внутри процесса плюс flock для других процессов.
// Все циклы load-mutate-save обязаны проходить через WithLock.
func (s *Store) WithLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fileLk.Lock(); err != nil {
		return fmt.Errorf("не удалось захватить flock индекса: %w", err)
	}
	defer func() {
		if err := s.fileLk.Unlock(); err != nil {
			s.logger.Warn("Ошибка освобождения flock индекса",
				slog.String("error", err.Error()),
			)
		}
	}()

	return fn()
}

// Load читает весь индекс из metadata.json.
// Отсутствующий или повреждённый файл даёт пустой индекс:
// повреждение логируется, но никогда не возвращается как ошибка.
func (s *Store) Load() map[string]*model.PhotoRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Ошибка чтения metadata.json, индекс считается пустым",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return make(map[string]*model.PhotoRecord)
	}

	records := make(map[string]*model.PhotoRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Повреждённый metadata.json, индекс считается пустым",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return make(map[string]*model.PhotoRecord)
	}

	return records
}

// Save атомарно переписывает metadata.json целиком.
// Паттерн: JSON с отступами → temp файл → fsync → atomic rename.
func (s *Store) Save(records map[string]*model.PhotoRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации индекса: %w", err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи индекса: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
