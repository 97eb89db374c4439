package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigkaa/photoserver/internal/storage/filestore"
	"github.com/bigkaa/photoserver/internal/storage/metastore"
)

// testEnv — общее окружение тестов сервисного слоя: хранилище
// во временной директории и собранные поверх него сервисы.
type testEnv struct {
	root        string
	store       *filestore.FileStore
	meta        *metastore.Store
	thumbnailer *Thumbnailer
	reconciler  *Reconciler
	upload      *UploadService
	query       *QueryService
	photos      *PhotoService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	logger := testLogger()

	store, err := filestore.New(root)
	if err != nil {
		t.Fatalf("filestore.New() вернул ошибку: %v", err)
	}
	meta, err := metastore.New(root, logger)
	if err != nil {
		t.Fatalf("metastore.New() вернул ошибку: %v", err)
	}

	thumbnailer := NewThumbnailer(store, DefaultThumbnailSize, logger)
	reconciler := NewReconciler(store, meta, logger)

	return &testEnv{
		root:        root,
		store:       store,
		meta:        meta,
		thumbnailer: thumbnailer,
		reconciler:  reconciler,
		upload:      NewUploadService(store, meta, thumbnailer, logger),
		query:       NewQueryService(reconciler, logger),
		photos:      NewPhotoService(store, meta, thumbnailer, reconciler, logger),
	}
}

// testJPEG возвращает JPEG-изображение заданного размера.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("не удалось закодировать тестовый JPEG: %v", err)
	}
	return buf.Bytes()
}

// testPNGWithAlpha возвращает PNG с полупрозрачными пикселями.
func testPNGWithAlpha(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: uint8(x % 256)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("не удалось закодировать тестовый PNG: %v", err)
	}
	return buf.Bytes()
}

// writeFile кладёт файл в папку хранилища напрямую, минуя сервисы.
func (e *testEnv) writeFile(t *testing.T, folder, filename string, data []byte) {
	t.Helper()

	if err := e.store.EnsureFolder(folder); err != nil {
		t.Fatalf("EnsureFolder(%s) вернул ошибку: %v", folder, err)
	}
	if err := os.WriteFile(filepath.Join(e.root, folder, filename), data, 0o640); err != nil {
		t.Fatalf("не удалось записать файл %s/%s: %v", folder, filename, err)
	}
}
