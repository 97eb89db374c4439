package service

import (
	"fmt"
	"testing"

	"github.com/bigkaa/photoserver/internal/domain/model"
)

// seedRecords кладёт файлы и метаданные для тестов запросов.
func seedQueryEnv(t *testing.T, env *testEnv) {
	t.Helper()

	files := []struct {
		folder   string
		filename string
		size     int
		date     string
		favorite bool
	}{
		{"alice", "sunset.jpg", 300, "2025-03-01T10:00:00", true},
		{"alice", "beach.jpg", 500, "2025-01-10T08:00:00", false},
		{"bob", "dog.png", 200, "2025-02-20T12:00:00", false},
		{"global", "party.jpg", 800, "2025-04-05T20:00:00", true},
	}

	records := make(map[string]*model.PhotoRecord)
	for _, f := range files {
		env.writeFile(t, f.folder, f.filename, make([]byte, f.size))
		key := model.RecordKey(f.folder, f.filename)
		records[key] = &model.PhotoRecord{
			Filename:   f.filename,
			Folder:     f.folder,
			FilePath:   key,
			UploadedBy: f.folder,
			UploadDate: f.date,
			FileSize:   int64(f.size),
			Size:       model.HumanSize(int64(f.size)),
			FileType:   model.FileTypeOf(f.filename),
			IsFavorite: f.favorite,
		}
	}
	if err := env.meta.Save(records); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}
}

func TestQuery_VisibilityForViewer(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	result, err := env.query.Query(QueryParams{
		Viewer: model.Viewer{Username: "bob"},
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}

	// bob видит свою папку и общую, но не папку alice.
	if result.Total != 2 {
		t.Fatalf("Total = %d, ожидалось 2", result.Total)
	}
	for _, photo := range result.Photos {
		if photo.Folder != "bob" && photo.Folder != model.SharedFolderDir {
			t.Errorf("запись из чужой папки %q в результате", photo.Folder)
		}
	}
}

func TestQuery_AdminSeesAll(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	result, err := env.query.Query(QueryParams{
		Viewer: model.Viewer{Username: "admin", Admin: true},
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}
	if result.Total != 4 {
		t.Errorf("Total = %d, ожидалось 4", result.Total)
	}
}

func TestQuery_FavoriteFilter(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	favorite := true
	result, err := env.query.Query(QueryParams{
		Viewer:   model.Viewer{Username: "bob"},
		Favorite: &favorite,
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}

	// Из видимых bob избранных — только global/party.jpg,
	// отсортировано по дате по убыванию.
	if result.Total != 1 {
		t.Fatalf("Total = %d, ожидалась 1", result.Total)
	}
	if result.Photos[0].Filename != "party.jpg" {
		t.Errorf("Filename = %q, ожидалось party.jpg", result.Photos[0].Filename)
	}
	if !result.Photos[0].IsFavorite {
		t.Error("в результате запись с is_favorite=false")
	}
}

func TestQuery_SearchSubstring(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	result, err := env.query.Query(QueryParams{
		Viewer: model.Viewer{Username: "admin", Admin: true},
		Search: "SUN",
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}
	if result.Total != 1 || result.Photos[0].Filename != "sunset.jpg" {
		t.Errorf("поиск без учёта регистра нашёл %d записей, ожидалась sunset.jpg", result.Total)
	}
}

func TestQuery_DateRange(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	result, err := env.query.Query(QueryParams{
		Viewer:   model.Viewer{Username: "admin", Admin: true},
		DateFrom: "2025-02-01T00:00:00",
		DateTo:   "2025-03-31T23:59:59",
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}

	// В диапазоне: sunset.jpg (март) и dog.png (февраль).
	if result.Total != 2 {
		t.Fatalf("Total = %d, ожидалось 2", result.Total)
	}
	want := []string{"sunset.jpg", "dog.png"}
	for i, filename := range want {
		if result.Photos[i].Filename != filename {
			t.Errorf("Photos[%d] = %q, ожидалось %q", i, result.Photos[i].Filename, filename)
		}
	}
}

func TestQuery_SortKeys(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	admin := model.Viewer{Username: "admin", Admin: true}

	tests := []struct {
		sort string
		want []string
	}{
		{SortByDate, []string{"party.jpg", "sunset.jpg", "dog.png", "beach.jpg"}},
		{"", []string{"party.jpg", "sunset.jpg", "dog.png", "beach.jpg"}},
		{SortByName, []string{"beach.jpg", "dog.png", "party.jpg", "sunset.jpg"}},
		{SortBySize, []string{"party.jpg", "beach.jpg", "sunset.jpg", "dog.png"}},
	}

	for _, tt := range tests {
		result, err := env.query.Query(QueryParams{Viewer: admin, Sort: tt.sort})
		if err != nil {
			t.Fatalf("Query(sort=%q) вернул ошибку: %v", tt.sort, err)
		}
		for i, filename := range tt.want {
			if result.Photos[i].Filename != filename {
				t.Errorf("sort=%q: Photos[%d] = %q, ожидалось %q",
					tt.sort, i, result.Photos[i].Filename, filename)
			}
		}
	}
}

func TestQuery_LimitClampedTo100(t *testing.T) {
	env := newTestEnv(t)

	records := make(map[string]*model.PhotoRecord)
	for i := 0; i < 120; i++ {
		filename := fmt.Sprintf("photo-%03d.jpg", i)
		env.writeFile(t, "alice", filename, []byte("x"))
		key := model.RecordKey("alice", filename)
		records[key] = &model.PhotoRecord{
			Filename: filename,
			Folder:   "alice",
			FilePath: key,
			FileSize: 1,
		}
	}
	if err := env.meta.Save(records); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	result, err := env.query.Query(QueryParams{
		Viewer: model.Viewer{Username: "alice"},
		Limit:  1000,
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}

	if result.Limit != MaxQueryLimit {
		t.Errorf("Limit = %d, ожидалось %d", result.Limit, MaxQueryLimit)
	}
	if len(result.Photos) != MaxQueryLimit {
		t.Errorf("размер страницы = %d, ожидалось %d", len(result.Photos), MaxQueryLimit)
	}
	if result.Total != 120 {
		t.Errorf("Total = %d, ожидалось 120", result.Total)
	}
	if !result.HasMore {
		t.Error("HasMore должен быть true")
	}
}

func TestQuery_OffsetBeyondEnd(t *testing.T) {
	env := newTestEnv(t)
	seedQueryEnv(t, env)

	result, err := env.query.Query(QueryParams{
		Viewer: model.Viewer{Username: "admin", Admin: true},
		Offset: 500,
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}

	if len(result.Photos) != 0 {
		t.Errorf("страница за пределами результата должна быть пустой, получено %d", len(result.Photos))
	}
	if result.HasMore {
		t.Error("HasMore за пределами результата должен быть false")
	}
}

func TestQuery_DecoratesURLs(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "alice", "cat.jpg", testJPEG(t, 64, 64))
	if _, err := env.thumbnailer.Generate("alice", "cat.jpg"); err != nil {
		t.Fatalf("Generate() вернул ошибку: %v", err)
	}

	result, err := env.query.Query(QueryParams{
		Viewer: model.Viewer{Username: "alice"},
	})
	if err != nil {
		t.Fatalf("Query() вернул ошибку: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Total = %d, ожидалась 1", result.Total)
	}

	photo := result.Photos[0]
	if photo.OriginalURL != "/uploads/alice/cat.jpg" {
		t.Errorf("OriginalURL = %q", photo.OriginalURL)
	}
	if photo.ThumbnailURL != "/uploads/alice/thumbnails/cat.jpg" {
		t.Errorf("ThumbnailURL = %q", photo.ThumbnailURL)
	}
}
