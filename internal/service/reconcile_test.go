package service

import (
	"os"
	"testing"

	"github.com/bigkaa/photoserver/internal/domain/model"
)

func TestReconcile_DiscoversUntrackedFiles(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "cat.jpg", []byte("jpeg-данные"))
	env.writeFile(t, "global", "shared.png", []byte("png-данные"))

	records, err := env.reconciler.Reconcile("")
	if err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Reconcile() вернул %d записей, ожидалось 2", len(records))
	}

	byKey := make(map[string]*model.PhotoRecord)
	for _, rec := range records {
		byKey[rec.Key()] = rec
	}

	cat, ok := byKey["alice/cat.jpg"]
	if !ok {
		t.Fatal("запись alice/cat.jpg не синтезирована")
	}
	if cat.UploadedBy != "alice" {
		t.Errorf("UploadedBy = %q, ожидалось alice", cat.UploadedBy)
	}
	if cat.FileSize != int64(len("jpeg-данные")) {
		t.Errorf("FileSize = %d, ожидалось %d", cat.FileSize, len("jpeg-данные"))
	}
	if cat.FileType != "jpg" {
		t.Errorf("FileType = %q, ожидалось jpg", cat.FileType)
	}
	if cat.UploadDate == "" {
		t.Error("UploadDate синтезированной записи не должна быть пустой")
	}

	shared, ok := byKey["global/shared.png"]
	if !ok {
		t.Fatal("запись global/shared.png не синтезирована")
	}
	if shared.UploadedBy != model.UnknownUploader {
		t.Errorf("UploadedBy общей папки = %q, ожидалось %q", shared.UploadedBy, model.UnknownUploader)
	}
}

func TestReconcile_RebuildsCorruptIndex(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "cat.jpg", []byte("jpeg-данные"))

	// Повреждённый metadata.json поглощается: сверка стартует
	// с пустого индекса и восстанавливает его с диска.
	err := os.WriteFile(env.meta.Path(), []byte("{обрыв записи"), 0o600)
	if err != nil {
		t.Fatalf("запись повреждённого metadata.json вернула ошибку: %v", err)
	}

	records, err := env.reconciler.Reconcile("")
	if err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Reconcile() вернул %d записей, ожидалась 1", len(records))
	}
	if records[0].Key() != "alice/cat.jpg" {
		t.Errorf("восстановлена запись %q, ожидалась alice/cat.jpg", records[0].Key())
	}

	stored := env.meta.Load()
	if _, ok := stored["alice/cat.jpg"]; !ok {
		t.Error("metadata.json не восстановлен после повреждения")
	}
}

func TestReconcile_DropsRecordsWithoutFiles(t *testing.T) {
	env := newTestEnv(t)

	// Запись о файле, которого нет на диске.
	err := env.meta.Save(map[string]*model.PhotoRecord{
		"alice/ghost.jpg": {
			Filename: "ghost.jpg",
			Folder:   "alice",
			FilePath: "alice/ghost.jpg",
		},
	})
	if err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	records, err := env.reconciler.Reconcile("")
	if err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Reconcile() вернул %d записей, ожидалось 0", len(records))
	}

	stored := env.meta.Load()
	if _, ok := stored["alice/ghost.jpg"]; ok {
		t.Error("запись без файла должна быть удалена из metadata.json")
	}
}

func TestReconcile_Convergence(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "a.jpg", []byte("a"))
	env.writeFile(t, "alice", "b.jpg", []byte("b"))
	env.writeFile(t, "bob", "c.png", []byte("c"))
	env.writeFile(t, "global", "d.mp4", []byte("d"))

	// Лишняя запись и запись, совпадающая с файлом.
	err := env.meta.Save(map[string]*model.PhotoRecord{
		"alice/gone.jpg": {Filename: "gone.jpg", Folder: "alice"},
		"bob/c.png":      {Filename: "c.png", Folder: "bob", FilePath: "bob/c.png"},
	})
	if err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	if _, err := env.reconciler.Reconcile(""); err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}

	stored := env.meta.Load()

	want := []string{"alice/a.jpg", "alice/b.jpg", "bob/c.png", "global/d.mp4"}
	if len(stored) != len(want) {
		t.Fatalf("после сверки %d записей, ожидалось %d", len(stored), len(want))
	}
	for _, key := range want {
		if _, ok := stored[key]; !ok {
			t.Errorf("после сверки отсутствует запись %s", key)
		}
	}
}

func TestReconcile_BackfillsDerivedFields(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "old.jpg", []byte("данные старого файла"))

	// Старая запись без производных полей.
	err := env.meta.Save(map[string]*model.PhotoRecord{
		"alice/old.jpg": {
			Filename:   "old.jpg",
			UploadedBy: "alice",
			UploadDate: "2020-01-01T00:00:00",
			FileSize:   2048,
			IsFavorite: true,
		},
	})
	if err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	if _, err := env.reconciler.Reconcile(""); err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}

	stored := env.meta.Load()
	rec := stored["alice/old.jpg"]
	if rec == nil {
		t.Fatal("запись alice/old.jpg пропала после сверки")
	}

	if rec.Size != "2.0 KB" {
		t.Errorf("Size = %q, ожидалось \"2.0 KB\"", rec.Size)
	}
	if rec.Folder != "alice" {
		t.Errorf("Folder = %q, ожидалось alice", rec.Folder)
	}
	if rec.FilePath != "alice/old.jpg" {
		t.Errorf("FilePath = %q, ожидалось alice/old.jpg", rec.FilePath)
	}
	if rec.FileType != "jpg" {
		t.Errorf("FileType = %q, ожидалось jpg", rec.FileType)
	}
	// Заполненные поля не трогаются.
	if rec.UploadDate != "2020-01-01T00:00:00" {
		t.Errorf("UploadDate изменилась: %q", rec.UploadDate)
	}
	if !rec.IsFavorite {
		t.Error("IsFavorite не должен сбрасываться сверкой")
	}
}

func TestReconcile_ViewerFilter(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "a.jpg", []byte("a"))
	env.writeFile(t, "bob", "b.jpg", []byte("b"))
	env.writeFile(t, "global", "g.jpg", []byte("g"))

	records, err := env.reconciler.Reconcile("alice")
	if err != nil {
		t.Fatalf("Reconcile(alice) вернул ошибку: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Reconcile(alice) вернул %d записей, ожидалась 1", len(records))
	}
	if records[0].Folder != "alice" {
		t.Errorf("Folder = %q, ожидалось alice", records[0].Folder)
	}
}

func TestReconcile_SortedByDateDescending(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "a.jpg", []byte("a"))
	env.writeFile(t, "alice", "b.jpg", []byte("b"))
	env.writeFile(t, "alice", "c.jpg", []byte("c"))

	// Фиксируем даты вручную: файл без даты должен оказаться последним.
	if _, err := env.reconciler.Reconcile(""); err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}
	stored := env.meta.Load()
	stored["alice/a.jpg"].UploadDate = "2024-05-01T10:00:00"
	stored["alice/b.jpg"].UploadDate = "2025-01-15T09:30:00"
	stored["alice/c.jpg"].UploadDate = ""
	if err := env.meta.Save(stored); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	records, err := env.reconciler.Reconcile("")
	if err != nil {
		t.Fatalf("Reconcile() вернул ошибку: %v", err)
	}

	want := []string{"b.jpg", "a.jpg", "c.jpg"}
	for i, filename := range want {
		if records[i].Filename != filename {
			t.Errorf("records[%d] = %q, ожидалось %q", i, records[i].Filename, filename)
		}
	}
}

func TestReconcileService_RunOnce(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "a.jpg", []byte("a"))

	rs := NewReconcileService(env.reconciler, 0, testLogger())
	// interval не используется при прямом вызове RunOnce.
	if skipped := rs.RunOnce(); skipped {
		t.Error("RunOnce() не должен пропускаться при первом вызове")
	}

	stored := env.meta.Load()
	if _, ok := stored["alice/a.jpg"]; !ok {
		t.Error("фоновая сверка не синтезировала запись alice/a.jpg")
	}
	if rs.IsInProgress() {
		t.Error("IsInProgress() после завершения должен быть false")
	}
}
