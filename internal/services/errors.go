package services

import "errors"

// Терминальные ошибки доменных операций. Хендлеры сопоставляют их
// с HTTP-статусами через errors.Is.
var (
	// ErrNotFound — раздел, родитель или тег не существует
	ErrNotFound = errors.New("не найдено")

	// ErrConflict — дубликат slug в рамках одного родителя (или имени тега)
	ErrConflict = errors.New("конфликт уникальности")

	// ErrInvalidOperation — циклическая ссылка, удаление с детьми без cascade,
	// некорректные входные данные
	ErrInvalidOperation = errors.New("недопустимая операция")
)
