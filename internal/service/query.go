// query.go — фильтрация, сортировка и пагинация списка фотографий.
package service

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/storage/filestore"
)

// MaxQueryLimit — максимальный размер страницы результата.
const MaxQueryLimit = 100

// DefaultQueryLimit — размер страницы по умолчанию.
const DefaultQueryLimit = 50

// Ключи сортировки результата.
const (
	SortByDate = "date" // дата загрузки по убыванию (по умолчанию)
	SortByName = "name" // имя файла по возрастанию, без учёта регистра
	SortBySize = "size" // размер по убыванию
)

// QueryParams — параметры запроса списка фотографий.
type QueryParams struct {
	// Viewer — идентичность запрашивающего; определяет видимость
	Viewer model.Viewer
	// Limit — размер страницы, клампится к MaxQueryLimit
	Limit int
	// Offset — смещение страницы; выход за пределы даёт пустую страницу
	Offset int
	// Favorite — фильтр по флагу избранного, nil — без фильтра
	Favorite *bool
	// Search — подстрока имени файла, без учёта регистра
	Search string
	// DateFrom, DateTo — включительный диапазон дат ISO-8601.
	// Сравнение строковое: корректно, потому что ISO-8601
	// сортируется лексикографически.
	DateFrom string
	DateTo   string
	// Sort — ключ сортировки (SortBy*), пустой — SortByDate
	Sort string
}

// PhotoView — запись результата запроса с производными URL
// для слоя представления.
type PhotoView struct {
	*model.PhotoRecord
	OriginalURL  string `json:"original_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// QueryResult — страница результата запроса.
type QueryResult struct {
	Photos  []*PhotoView `json:"photos"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"has_more"`
}

// QueryService — слой запросов к реконсилированным метаданным.
type QueryService struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewQueryService создаёт слой запросов.
func NewQueryService(reconciler *Reconciler, logger *slog.Logger) *QueryService {
	return &QueryService{
		reconciler: reconciler,
		logger:     logger.With(slog.String("component", "query")),
	}
}

// Query возвращает страницу фотографий, видимых запрашивающему.
// Перед выборкой выполняется reconciliation всего хранилища.
//
// Порядок фильтров: видимость, избранное, подстрока имени,
// диапазон дат. Затем сортировка и пагинация.
func (q *QueryService) Query(params QueryParams) (*QueryResult, error) {
	records, err := q.reconciler.Reconcile("")
	if err != nil {
		return nil, err
	}

	filtered := make([]*model.PhotoRecord, 0, len(records))
	for _, rec := range records {
		if !params.Viewer.CanSee(rec.Folder) {
			continue
		}
		if params.Favorite != nil && rec.IsFavorite != *params.Favorite {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(strings.ToLower(rec.Filename), strings.ToLower(params.Search)) {
			continue
		}
		if params.DateFrom != "" && rec.UploadDate < params.DateFrom {
			continue
		}
		if params.DateTo != "" && rec.UploadDate > params.DateTo {
			continue
		}
		filtered = append(filtered, rec)
	}

	sortRecords(filtered, params.Sort)

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(filtered)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]*PhotoView, 0, end-start)
	for _, rec := range filtered[start:end] {
		page = append(page, decorate(rec))
	}

	return &QueryResult{
		Photos:  page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
	}, nil
}

// sortRecords сортирует записи по указанному ключу.
// Reconcile уже возвращает порядок по дате по убыванию, поэтому
// SortByDate дополнительной сортировки не требует.
func sortRecords(records []*model.PhotoRecord, key string) {
	switch key {
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			return strings.ToLower(records[i].Filename) < strings.ToLower(records[j].Filename)
		})
	case SortBySize:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].FileSize > records[j].FileSize
		})
	}
}

// decorate добавляет записи производные URL оригинала и миниатюры.
func decorate(rec *model.PhotoRecord) *PhotoView {
	view := &PhotoView{
		PhotoRecord: rec,
		OriginalURL: "/uploads/" + url.PathEscape(rec.Folder) + "/" + url.PathEscape(rec.Filename),
	}
	if rec.HasThumbnail {
		view.ThumbnailURL = "/uploads/" + url.PathEscape(rec.Folder) + "/" +
			filestore.ThumbnailsDir + "/" + url.PathEscape(rec.Filename)
	}
	return view
}
