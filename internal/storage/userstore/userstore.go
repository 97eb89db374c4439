// Пакет userstore — хранилище пользователей в SQLite (pure-Go драйвер,
// без cgo). Схема создаётся автоматически при открытии.
//
// Закреплённый администратор: учётная запись с именем из
// PS_ADMIN_USERNAME всегда несёт флаг admin — создаётся при первом
// запуске, не может быть лишена прав и воссоздаётся при открытии,
// если её удалили из базы напрямую.
package userstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bigkaa/photoserver/internal/domain/model"
)

var (
	// ErrUserExists — попытка создать пользователя с занятым именем.
	ErrUserExists = errors.New("пользователь с таким именем уже существует")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrNotPinnedAdmin — операция доступна только закреплённому администратору.
	ErrNotPinnedAdmin = errors.New("операция доступна только основному администратору")
	// ErrPinnedAdminDemotion — попытка снять права с закреплённого администратора.
	ErrPinnedAdminDemotion = errors.New("нельзя снять права с основного администратора")
)

// Store — хранилище пользователей.
type Store struct {
	db            *gorm.DB
	adminUsername string
	logger        *slog.Logger
}

// Open открывает (или создаёт) базу пользователей по указанному пути,
// выполняет миграцию схемы и гарантирует наличие закреплённого
// администратора с паролем adminPassword.
func Open(path, adminUsername, adminPassword string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию базы пользователей: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы пользователей %s: %w", path, err)
	}

	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, fmt.Errorf("ошибка миграции схемы пользователей: %w", err)
	}

	s := &Store{
		db:            db,
		adminUsername: adminUsername,
		logger:        logger.With(slog.String("component", "userstore")),
	}

	if err := s.ensureAdmin(adminPassword); err != nil {
		return nil, err
	}

	return s, nil
}

// AdminUsername возвращает имя закреплённого администратора.
func (s *Store) AdminUsername() string {
	return s.adminUsername
}

// ensureAdmin создаёт закреплённого администратора при отсутствии
// и восстанавливает его флаг admin, если тот был сброшен напрямую в базе.
func (s *Store) ensureAdmin(adminPassword string) error {
	admin, err := s.Get(s.adminUsername)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		hash, hashErr := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return fmt.Errorf("ошибка хэширования пароля администратора: %w", hashErr)
		}

		admin = &model.User{
			Username:       s.adminUsername,
			Email:          s.adminUsername + "@example.com",
			FullName:       "Admin User",
			HashedPassword: string(hash),
			Admin:          true,
		}
		if createErr := s.db.Create(admin).Error; createErr != nil {
			return fmt.Errorf("ошибка создания администратора: %w", createErr)
		}

		s.logger.Info("Создан закреплённый администратор",
			slog.String("username", s.adminUsername),
		)
		return nil
	}

	if !admin.Admin {
		if err := s.db.Model(admin).Update("admin", true).Error; err != nil {
			return fmt.Errorf("ошибка восстановления прав администратора: %w", err)
		}
		s.logger.Warn("Флаг admin закреплённого администратора восстановлен",
			slog.String("username", s.adminUsername),
		)
	}

	return nil
}

// Ping проверяет доступность базы (для readiness probe).
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("ошибка доступа к соединению базы пользователей: %w", err)
	}
	return sqlDB.Ping()
}

// Get возвращает пользователя по имени.
func (s *Store) Get(username string) (*model.User, error) {
	var user model.User
	err := s.db.First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка поиска пользователя %s: %w", username, err)
	}
	return &user, nil
}

// List возвращает всех пользователей, отсортированных по имени.
func (s *Store) List() ([]model.User, error) {
	var users []model.User
	if err := s.db.Order("username asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("ошибка перечисления пользователей: %w", err)
	}
	return users, nil
}

// CreateParams — параметры создания пользователя.
type CreateParams struct {
	Username string
	Email    string
	FullName string
	Password string
	Admin    bool
}

// Create создаёт нового пользователя с bcrypt-хэшем пароля.
// Имя закреплённого администратора всегда получает admin=true
// независимо от переданного значения.
// Возвращает ErrUserExists при занятом имени.
func (s *Store) Create(params CreateParams) (*model.User, error) {
	if _, err := s.Get(params.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хэширования пароля: %w", err)
	}

	isAdmin := params.Admin
	if params.Username == s.adminUsername {
		isAdmin = true
	}

	user := &model.User{
		Username:       params.Username,
		Email:          params.Email,
		FullName:       params.FullName,
		HashedPassword: string(hash),
		Admin:          isAdmin,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания пользователя %s: %w", params.Username, err)
	}

	s.logger.Info("Пользователь создан",
		slog.String("username", user.Username),
		slog.Bool("admin", user.Admin),
	)

	return user, nil
}

// SetAdmin меняет флаг admin пользователя target.
// Право менять флаги есть только у закреплённого администратора;
// с самого закреплённого администратора права снять нельзя.
func (s *Store) SetAdmin(actor, target string, admin bool) error {
	if actor != s.adminUsername {
		return ErrNotPinnedAdmin
	}
	if target == s.adminUsername && !admin {
		return ErrPinnedAdminDemotion
	}

	user, err := s.Get(target)
	if err != nil {
		return err
	}

	if err := s.db.Model(user).Update("admin", admin).Error; err != nil {
		return fmt.Errorf("ошибка обновления прав пользователя %s: %w", target, err)
	}

	s.logger.Info("Права пользователя обновлены",
		slog.String("target", target),
		slog.Bool("admin", admin),
	)

	return nil
}
