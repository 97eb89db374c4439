// users.go — административные операции над пользователями.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/photoserver/internal/api/errors"
	"github.com/bigkaa/photoserver/internal/api/middleware"
	"github.com/bigkaa/photoserver/internal/storage/userstore"
)

// ListUsers обрабатывает GET /users (только администратор).
func (h *Handler) ListUsers(w http.ResponseWriter, _ *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.logger.Error("Ошибка перечисления пользователей",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить список пользователей")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{
			Username: u.Username,
			Email:    u.Email,
			FullName: u.FullName,
			Disabled: u.Disabled,
			Admin:    u.Admin,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": resp})
}

// createUserRequest — тело запроса POST /admin/create-user.
type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}

// CreateUser обрабатывает POST /admin/create-user (только администратор).
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Username == "" || req.Password == "" {
		apierrors.ValidationError(w, "Поля username и password обязательны")
		return
	}

	user, err := h.users.Create(userstore.CreateParams{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrUserExists) {
			apierrors.UserExists(w, "Пользователь с таким именем уже существует")
			return
		}
		h.logger.Error("Ошибка создания пользователя",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось создать пользователя")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Disabled: user.Disabled,
		Admin:    user.Admin,
	})
}

// updateAdminStatusRequest — тело запроса POST /api/update-admin-status.
type updateAdminStatusRequest struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// UpdateAdminStatus обрабатывает POST /api/update-admin-status.
// Менять флаги может только закреплённый администратор; его
// собственный флаг снять нельзя.
func (h *Handler) UpdateAdminStatus(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var req updateAdminStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Username == "" {
		apierrors.ValidationError(w, "Поле username обязательно")
		return
	}

	err := h.users.SetAdmin(viewer.Username, req.Username, req.Admin)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrNotPinnedAdmin):
		apierrors.Forbidden(w, "Операция доступна только основному администратору")
		return
	case errors.Is(err, userstore.ErrPinnedAdminDemotion):
		apierrors.Forbidden(w, "Нельзя снять права с основного администратора")
		return
	case errors.Is(err, userstore.ErrUserNotFound):
		apierrors.NotFound(w, "Пользователь не найден")
		return
	default:
		h.logger.Error("Ошибка обновления прав пользователя",
			slog.String("target", req.Username),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось обновить права пользователя")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username": req.Username,
		"admin":    req.Admin,
	})
}
