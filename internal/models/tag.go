package models

import "time"

// Tag — запись реестра тегов с денормализованным счётчиком использований.
type Tag struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	OldID      *int      `json:"old_id,omitempty"` // id из легаси-CMS, остаётся после миграции
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// swagger:model CreateTagRequest
type CreateTagRequest struct {
	Name string `json:"name" example:"КВН"`
	Slug string `json:"slug,omitempty" example:"kvn"`
}

type TagList struct {
	Items []Tag `json:"items"`
	Total int   `json:"total"`
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
}
