// folder.go — типизированное представление папки хранилища.
// Папка — раздел верхнего уровня: личное пространство пользователя
// или общая папка. Вместо строки-сентинела "global" в коде используется
// тегированный тип Folder, разбор выполняется один раз на границе.
package model

// SharedFolderDir — имя общей папки на диске и в ключах metadata.json.
const SharedFolderDir = "global"

// UnknownUploader — значение uploaded_by для файлов, обнаруженных
// reconciliation в общей папке.
const UnknownUploader = "unknown"

// Folder — папка хранилища: личная (с владельцем) или общая.
type Folder struct {
	owner  string
	shared bool
}

// PersonalFolder возвращает личную папку пользователя.
func PersonalFolder(owner string) Folder {
	return Folder{owner: owner}
}

// SharedFolder возвращает общую папку.
func SharedFolder() Folder {
	return Folder{shared: true}
}

// ParseFolder разбирает имя директории верхнего уровня в Folder.
// "global" → общая папка, любое другое имя → личная папка владельца.
func ParseFolder(dir string) Folder {
	if dir == SharedFolderDir {
		return SharedFolder()
	}
	return PersonalFolder(dir)
}

// Dir возвращает имя директории папки на диске.
func (f Folder) Dir() string {
	if f.shared {
		return SharedFolderDir
	}
	return f.owner
}

// IsShared возвращает true для общей папки.
func (f Folder) IsShared() bool {
	return f.shared
}

// Owner возвращает владельца личной папки, пустую строку для общей.
func (f Folder) Owner() string {
	if f.shared {
		return ""
	}
	return f.owner
}

// VisibleTo проверяет видимость папки для пользователя:
// общая папка видна всем, личная — только владельцу.
// Папка — единственный источник истины о владении (uploaded_by
// информационное поле и в проверках прав не участвует).
func (f Folder) VisibleTo(viewer string) bool {
	if f.shared {
		return true
	}
	return f.owner == viewer
}

// DefaultUploader возвращает uploaded_by для файла, обнаруженного
// reconciliation в этой папке: имя владельца или "unknown" для общей.
func (f Folder) DefaultUploader() string {
	if f.shared {
		return UnknownUploader
	}
	return f.owner
}

// Viewer — идентичность, от имени которой выполняется запрос или
// мутация: имя пользователя и флаг администратора.
type Viewer struct {
	Username string
	Admin    bool
}

// CanSee проверяет право просмотра файлов папки:
// администратор видит всё, пользователь — свою папку и общую.
func (v Viewer) CanSee(folderDir string) bool {
	return v.Admin || ParseFolder(folderDir).VisibleTo(v.Username)
}

// CanDelete проверяет право удаления файлов папки.
// Удалять можно только из своей папки; файлы общей папки удаляет
// только администратор.
func (v Viewer) CanDelete(folderDir string) bool {
	return v.Admin || folderDir == v.Username
}
