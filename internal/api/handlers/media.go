// media.go — отдача оригиналов и миниатюр.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/photoserver/internal/api/errors"
	"github.com/bigkaa/photoserver/internal/api/middleware"
)

// ServeOriginal обрабатывает GET /uploads/{folder}/{filename}.
// Параметры маршрута chi не содержат разделителей пути, поэтому
// выход за пределы папки через ".." невозможен.
func (h *Handler) ServeOriginal(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")

	if !validPathSegment(folder) || !validPathSegment(filename) {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	if !viewer.CanSee(folder) || !h.store.FileExists(folder, filename) {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	http.ServeFile(w, r, h.store.FilePath(folder, filename))
}

// ServeThumbnail обрабатывает GET /uploads/{folder}/thumbnails/{filename}.
func (h *Handler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")

	if !validPathSegment(folder) || !validPathSegment(filename) {
		apierrors.NotFound(w, "Миниатюра не найдена")
		return
	}
	if !viewer.CanSee(folder) || !h.store.ThumbnailExists(folder, filename) {
		apierrors.NotFound(w, "Миниатюра не найдена")
		return
	}
	http.ServeFile(w, r, h.store.ThumbnailPath(folder, filename))
}
