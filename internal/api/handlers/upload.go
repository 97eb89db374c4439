// upload.go — приём файлов через multipart/form-data.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	apierrors "github.com/bigkaa/photoserver/internal/api/errors"
	"github.com/bigkaa/photoserver/internal/api/middleware"
	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/service"
)

// Upload обрабатывает POST /upload.
//
// Ожидает multipart/form-data с полем file и необязательным полем
// folder. По умолчанию файл попадает в личную папку пользователя;
// значение "global" доступно всем, чужие папки — только администратору.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, "Размер файла превышает допустимый предел")
			return
		}
		apierrors.ValidationError(w, "Поле file обязательно")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !validPathSegment(filename) {
		apierrors.ValidationError(w, "Некорректное имя файла")
		return
	}

	folder := model.PersonalFolder(viewer.Username)
	if dir := r.FormValue("folder"); dir != "" && dir != viewer.Username {
		if !validPathSegment(dir) {
			apierrors.ValidationError(w, "Некорректное имя папки")
			return
		}
		parsed := model.ParseFolder(dir)
		if !parsed.IsShared() && !viewer.Admin {
			apierrors.Forbidden(w, "Загрузка в чужую папку запрещена")
			return
		}
		folder = parsed
	}

	record, err := h.uploads.Upload(service.UploadParams{
		Reader:          file,
		DesiredFilename: filename,
		Folder:          folder,
		UploadedBy:      viewer.Username,
	})
	if err != nil {
		var transferErr *service.TransferError
		if errors.As(err, &transferErr) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				apierrors.FileTooLarge(w, "Размер файла превышает допустимый предел")
				return
			}
			h.logger.Error("Ошибка передачи файла",
				slog.String("filename", filename),
				slog.String("folder", folder.Dir()),
				slog.String("error", err.Error()),
			)
			apierrors.TransferFailed(w, "Не удалось сохранить файл")
			return
		}
		h.logger.Error("Ошибка загрузки файла",
			slog.String("filename", filename),
			slog.String("folder", folder.Dir()),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось загрузить файл")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Файл загружен",
		"filename": record.Filename,
		"folder":   record.Folder,
		"size":     record.Size,
	})
}
