package models

// Статусы публикации контента
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

func IsValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// SEOData — SEO-метаданные страницы
type SEOData struct {
	MetaTitle       *string  `json:"meta_title,omitempty"`
	MetaDescription *string  `json:"meta_description,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	OgImage         *string  `json:"og_image,omitempty"`
}

// MediaFile — ссылка на медиафайл
type MediaFile struct {
	URL       string  `json:"url"`
	Alt       *string `json:"alt,omitempty"`
	Caption   *string `json:"caption,omitempty"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}
