// auth.go — выпуск токенов и сведения о текущем пользователе.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/photoserver/internal/api/errors"
	"github.com/bigkaa/photoserver/internal/api/middleware"
	"github.com/bigkaa/photoserver/internal/service"
)

// tokenResponse — тело ответа POST /token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// userResponse — представление пользователя в ответах API.
type userResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Disabled bool   `json:"disabled"`
	Admin    bool   `json:"admin"`
}

// Token обрабатывает POST /token.
// Принимает форму с полями username и password, возвращает bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		apierrors.ValidationError(w, "Поля username и password обязательны")
		return
	}

	user, err := h.auth.Authenticate(username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			apierrors.Unauthorized(w, "Неверное имя пользователя или пароль")
		case errors.Is(err, service.ErrUserDisabled):
			apierrors.Forbidden(w, "Учётная запись отключена")
		default:
			h.logger.Error("Ошибка аутентификации",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка аутентификации")
		}
		return
	}

	token, expiresAt, err := h.auth.IssueToken(user)
	if err != nil {
		h.logger.Error("Ошибка выпуска токена",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось выпустить токен")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}

// CurrentUser обрабатывает GET /users/me.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	user, err := h.users.Get(viewer.Username)
	if err != nil {
		apierrors.NotFound(w, "Пользователь не найден")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Disabled: user.Disabled,
		Admin:    user.Admin,
	})
}
