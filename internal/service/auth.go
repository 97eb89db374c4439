// auth.go — аутентификация пользователей и выпуск JWT.
//
// Сервер сам выпускает и проверяет токены: подпись HS256 общим
// секретом (PS_SECRET_KEY), субъект — имя пользователя.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/photoserver/internal/domain/model"
	"github.com/bigkaa/photoserver/internal/storage/userstore"
)

var (
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	// Какое именно из двух — намеренно не раскрывается.
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")

	// ErrUserDisabled — учётная запись отключена.
	ErrUserDisabled = errors.New("учётная запись отключена")

	// ErrInvalidToken — токен не прошёл проверку.
	ErrInvalidToken = errors.New("недействительный токен")
)

// authAttemptsTotal — количество попыток аутентификации по результату.
var authAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ps_auth_attempts_total",
	Help: "Общее количество попыток аутентификации",
}, []string{"status"})

// AuthService — аутентификация и работа с JWT.
type AuthService struct {
	users  *userstore.Store
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(users *userstore.Store, secret string, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger.With(slog.String("component", "auth")),
	}
}

// Authenticate проверяет имя пользователя и пароль.
// Несуществующий пользователь и неверный пароль дают одну и ту же
// ошибку ErrInvalidCredentials.
func (a *AuthService) Authenticate(username, password string) (*model.User, error) {
	user, err := a.users.Get(username)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			authAttemptsTotal.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		authAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		authAttemptsTotal.WithLabelValues("invalid").Inc()
		a.logger.Warn("Неудачная попытка входа",
			slog.String("username", username),
		)
		return nil, ErrInvalidCredentials
	}

	if user.Disabled {
		authAttemptsTotal.WithLabelValues("disabled").Inc()
		return nil, ErrUserDisabled
	}

	authAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// IssueToken выпускает JWT для пользователя.
// Возвращает токен и момент истечения его срока действия.
func (a *AuthService) IssueToken(user *model.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(a.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	a.logger.Debug("Токен выпущен",
		slog.String("username", user.Username),
		slog.Time("expires_at", expiresAt),
	)

	return signed, expiresAt, nil
}

// VerifyToken проверяет подпись и срок действия токена.
// Возвращает имя пользователя из субъекта токена.
func (a *AuthService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
