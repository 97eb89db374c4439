// auth.go — JWT middleware аутентификации.
// Проверяет Bearer token, подписанный самим сервером (HS256),
// и резолвит пользователя из базы в model.Viewer.
// Публичные endpoints (token, health, metrics) монтируются вне middleware.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/photoserver/internal/api/errors"
	"github.com/bigkaa/photoserver/internal/domain/model"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// contextKeyViewer — ключ для model.Viewer в контексте запроса.
const contextKeyViewer contextKey = "viewer"

// TokenVerifier проверяет токен и возвращает имя пользователя.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// UserResolver возвращает пользователя по имени.
type UserResolver interface {
	Get(username string) (*model.User, error)
}

// JWTAuth — middleware JWT-аутентификации.
type JWTAuth struct {
	verifier TokenVerifier
	users    UserResolver
	logger   *slog.Logger
}

// NewJWTAuth создаёт JWT middleware.
func NewJWTAuth(verifier TokenVerifier, users UserResolver, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		verifier: verifier,
		users:    users,
		logger:   logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token из заголовка Authorization, проверяет подпись
// и срок действия, резолвит пользователя и помещает Viewer в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			username, err := j.verifier.VerifyToken(tokenString)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			user, err := j.users.Get(username)
			if err != nil {
				// Токен валиден, но пользователя больше нет.
				apierrors.Unauthorized(w, "Пользователь токена не найден")
				return
			}
			if user.Disabled {
				apierrors.Forbidden(w, "Учётная запись отключена")
				return
			}

			viewer := model.Viewer{
				Username: user.Username,
				Admin:    user.Admin,
			}
			ctx := context.WithValue(r.Context(), contextKeyViewer, viewer)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin возвращает middleware, пропускающий только администраторов.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer, ok := ViewerFromContext(r.Context())
			if !ok {
				apierrors.Unauthorized(w, "Требуется аутентификация")
				return
			}
			if !viewer.Admin {
				apierrors.Forbidden(w, "Требуются права администратора")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithViewer помещает Viewer в контекст. Используется
// в тестах обработчиков для имитации пройденной аутентификации.
func ContextWithViewer(ctx context.Context, viewer model.Viewer) context.Context {
	return context.WithValue(ctx, contextKeyViewer, viewer)
}

// ViewerFromContext извлекает Viewer из контекста запроса.
func ViewerFromContext(ctx context.Context) (model.Viewer, bool) {
	viewer, ok := ctx.Value(contextKeyViewer).(model.Viewer)
	return viewer, ok
}
