// user.go — модель пользователя Photo Server.
package model

import "time"

// User — учётная запись пользователя. Хранится в SQLite (userstore),
// в API никогда не отдаётся поле HashedPassword.
type User struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"-"`

	// Username — уникальное имя пользователя, совпадает с именем
	// его личной папки в хранилище.
	Username string `gorm:"uniqueIndex;size:50;not null" json:"username"`

	Email    string `gorm:"size:100" json:"email"`
	FullName string `gorm:"size:100" json:"full_name"`

	// HashedPassword — bcrypt-хэш пароля
	HashedPassword string `gorm:"size:255;not null" json:"-"`

	// Disabled — заблокированный пользователь не проходит аутентификацию
	Disabled bool `gorm:"not null;default:false" json:"disabled"`

	// Admin — административные права: просмотр и удаление любых файлов,
	// управление пользователями.
	Admin bool `gorm:"not null;default:false" json:"admin"`

	CreatedAt time.Time `json:"created_at"`
}
