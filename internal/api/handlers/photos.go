// photos.go — запросы к галерее и операции над отдельными фотографиями.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/photoserver/internal/api/errors"
	"github.com/bigkaa/photoserver/internal/api/middleware"
	"github.com/bigkaa/photoserver/internal/service"
)

// ListPhotos обрабатывает GET /photos.
//
// Параметры запроса: limit, offset, favorite, search, date_from,
// date_to, sort_by (date|name|size).
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	params := service.QueryParams{Viewer: viewer}
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierrors.ValidationError(w, "Параметр limit должен быть неотрицательным числом")
			return
		}
		params.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierrors.ValidationError(w, "Параметр offset должен быть неотрицательным числом")
			return
		}
		params.Offset = n
	}
	if v := q.Get("favorite"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр favorite должен быть true или false")
			return
		}
		params.Favorite = &fav
	}
	params.Search = q.Get("search")
	params.DateFrom = q.Get("date_from")
	params.DateTo = q.Get("date_to")

	switch sortBy := q.Get("sort_by"); sortBy {
	case "", service.SortByDate, service.SortByName, service.SortBySize:
		params.Sort = sortBy
	default:
		apierrors.ValidationError(w, "Параметр sort_by должен быть date, name или size")
		return
	}

	result, err := h.query.Query(params)
	if err != nil {
		h.logger.Error("Ошибка запроса фотографий",
			slog.String("viewer", viewer.Username),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить список фотографий")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPhoto обрабатывает GET /photos/{folder}/{filename}.
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")
	if !validPathSegment(folder) || !validPathSegment(filename) {
		apierrors.NotFound(w, "Фотография не найдена")
		return
	}

	view, err := h.photos.Get(viewer, folder, filename)
	if err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			apierrors.NotFound(w, "Фотография не найдена")
			return
		}
		h.logger.Error("Ошибка получения фотографии",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить фотографию")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeletePhoto обрабатывает DELETE /photos/{folder}/{filename}.
func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")
	if !validPathSegment(folder) || !validPathSegment(filename) {
		apierrors.NotFound(w, "Фотография не найдена")
		return
	}

	if err := h.photos.Delete(viewer, folder, filename); err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			apierrors.NotFound(w, "Фотография не найдена")
			return
		}
		h.logger.Error("Ошибка удаления фотографии",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось удалить фотографию")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Фотография удалена",
		"file":    folder + "/" + filename,
	})
}

// deletePhotosRequest — тело запроса POST /photos/delete-multiple.
type deletePhotosRequest struct {
	FilePaths []string `json:"file_paths"`
}

// DeletePhotos обрабатывает пакетное удаление. Операция выполняется
// по принципу частичного успеха: недоступные ключи попадают в failed,
// остальные удаляются.
func (h *Handler) DeletePhotos(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var req deletePhotosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if len(req.FilePaths) == 0 {
		apierrors.ValidationError(w, "Список file_paths пуст")
		return
	}

	deleted, failed := h.photos.DeleteMany(viewer, req.FilePaths)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"failed":  failed,
	})
}

// ToggleFavorite обрабатывает POST /photos/{folder}/{filename}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")
	if !validPathSegment(folder) || !validPathSegment(filename) {
		apierrors.NotFound(w, "Фотография не найдена")
		return
	}

	record, err := h.photos.ToggleFavorite(viewer, folder, filename)
	if err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			apierrors.NotFound(w, "Фотография не найдена")
			return
		}
		h.logger.Error("Ошибка переключения избранного",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось обновить флаг избранного")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file":        folder + "/" + filename,
		"is_favorite": record.IsFavorite,
	})
}
