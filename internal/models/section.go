package models

import (
	"encoding/json"
	"time"
)

// Section — узел иерархического дерева разделов.
// Примеры: /kvn, /kvn/vysshaya-liga, /kvn/vysshaya-liga/2024
type Section struct {
	ID string `json:"id"`

	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	FullPath    string     `json:"full_path"`
	Description *string    `json:"description,omitempty"`
	CoverImage  *MediaFile `json:"cover_image,omitempty"`

	// Иерархия
	ParentID   *string `json:"parent_id,omitempty"`
	ParentPath *string `json:"parent_path,omitempty"` // full_path родителя, для хлебных крошек
	Level      int     `json:"level"`                 // 0 = корень
	Order      int     `json:"order"`                 // сортировка среди соседей

	// Навигация
	InMainMenu bool    `json:"in_main_menu"`
	MenuTitle  *string `json:"menu_title,omitempty"`

	// Контент: непрозрачные блоки страницы
	Modules json.RawMessage `json:"modules,omitempty"`

	// Настройки дочернего контента
	ChildTypes       []string `json:"child_types"`
	ShowChildrenList bool     `json:"show_children_list"`

	SEO    SEOData  `json:"seo"`
	Tags   []string `json:"tags"`
	Status string   `json:"status"`

	Views int `json:"views"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Breadcrumb — элемент цепочки предков от корня к родителю.
type Breadcrumb struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FullPath string `json:"full_path"`
}

// SectionDetail — раздел с метаданными для детальной выдачи.
type SectionDetail struct {
	Section
	ChildrenCount int          `json:"children_count"`
	Breadcrumbs   []Breadcrumb `json:"breadcrumbs"`
	// true, если при обходе предков встретился "висячий" parent_id
	ParentChainBroken bool `json:"parent_chain_broken,omitempty"`
}

// SectionTree — раздел с детьми для древовидной выдачи.
type SectionTree struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Slug       string         `json:"slug"`
	FullPath   string         `json:"full_path"`
	Level      int            `json:"level"`
	Order      int            `json:"order"`
	Status     string         `json:"status"`
	InMainMenu bool           `json:"in_main_menu"`
	Children   []*SectionTree `json:"children"`
}

// SectionFilter — фильтры списка (комбинируются по И).
type SectionFilter struct {
	ParentID   *string // конкретный родитель
	RootsOnly  bool    // parent_id IS NULL
	Level      *int
	Status     *string
	InMainMenu *bool
	Search     string // подстрока в title/description, без учёта регистра
	Skip       int
	Limit      int
}

// swagger:model CreateSectionRequest
type CreateSectionRequest struct {
	Title            string          `json:"title" example:"Высшая лига"`
	Slug             string          `json:"slug" example:"vysshaya-liga"`
	Description      *string         `json:"description,omitempty"`
	CoverImage       *MediaFile      `json:"cover_image,omitempty"`
	ParentID         *string         `json:"parent_id,omitempty"`
	Order            int             `json:"order"`
	InMainMenu       bool            `json:"in_main_menu"`
	MenuTitle        *string         `json:"menu_title,omitempty"`
	Modules          json.RawMessage `json:"modules,omitempty"`
	ChildTypes       []string        `json:"child_types,omitempty"`
	ShowChildrenList *bool           `json:"show_children_list,omitempty"` // по умолчанию true
	SEO              *SEOData        `json:"seo,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	Status           string          `json:"status,omitempty"`
}

// swagger:model UpdateSectionRequest
type UpdateSectionRequest struct {
	Title            *string         `json:"title,omitempty"`
	Slug             *string         `json:"slug,omitempty"`
	Description      *string         `json:"description,omitempty"`
	CoverImage       *MediaFile      `json:"cover_image,omitempty"`
	ParentID         *string         `json:"parent_id,omitempty"`
	Order            *int            `json:"order,omitempty"`
	InMainMenu       *bool           `json:"in_main_menu,omitempty"`
	MenuTitle        *string         `json:"menu_title,omitempty"`
	Modules          json.RawMessage `json:"modules,omitempty"`
	ChildTypes       []string        `json:"child_types,omitempty"`
	ShowChildrenList *bool           `json:"show_children_list,omitempty"`
	SEO              *SEOData        `json:"seo,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	Status           *string         `json:"status,omitempty"`

	// parent_id: null в теле означает перенос в корень, отсутствие ключа —
	// "родителя не трогать". Различаем при разборе JSON.
	ParentIDSet bool `json:"-"`
}

func (r *UpdateSectionRequest) UnmarshalJSON(b []byte) error {
	type alias UpdateSectionRequest
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err == nil {
		_, a.ParentIDSet = probe["parent_id"]
	}

	*r = UpdateSectionRequest(a)
	return nil
}

type CreateSectionResult struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	FullPath string `json:"full_path"`
}

type UpdateSectionResult struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

type DeleteSectionResult struct {
	ID       string `json:"id"`
	Deleted  bool   `json:"deleted"`
	Cascaded bool   `json:"cascaded"`
}

type SectionList struct {
	Items []Section `json:"items"`
	Total int       `json:"total"`
	Skip  int       `json:"skip"`
	Limit int       `json:"limit"`
}

// SectionChildren — прямые дети раздела с краткой информацией о родителе.
type SectionChildren struct {
	Items  []Section  `json:"items"`
	Total  int        `json:"total"`
	Skip   int        `json:"skip"`
	Limit  int        `json:"limit"`
	Parent Breadcrumb `json:"parent"`
}
