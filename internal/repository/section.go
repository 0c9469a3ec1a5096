package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"humorpedia/internal/models"
)

// PathUpdate — новые пути и уровень потомка при переносе/переименовании предка.
type PathUpdate struct {
	ID         string
	FullPath   string
	ParentPath *string
	Level      int
}

type SectionRepo interface {
	Insert(ctx context.Context, s *models.Section) error
	GetByID(ctx context.Context, id string) (*models.Section, error)
	GetBySlug(ctx context.Context, slug string) (*models.Section, error)
	GetByPath(ctx context.Context, fullPath string) (*models.Section, error)
	SiblingSlugExists(ctx context.Context, slug string, parentID *string) (bool, error)
	List(ctx context.Context, f models.SectionFilter) ([]models.Section, int, error)
	ListAll(ctx context.Context, status *string) ([]models.Section, error)
	ListChildren(ctx context.Context, parentID string, skip, limit int, status *string) ([]models.Section, int, error)
	ChildrenOf(ctx context.Context, parentID string) ([]models.Section, error)
	CountChildren(ctx context.Context, id string) (int, error)
	Update(ctx context.Context, s *models.Section) error
	// UpdateWithPaths обновляет раздел и пути его потомков одной транзакцией.
	UpdateWithPaths(ctx context.Context, s *models.Section, paths []PathUpdate) error
	// DeleteMany удаляет поддерево одним запросом (всё или ничего).
	DeleteMany(ctx context.Context, ids []string) error
	IncrementViews(ctx context.Context, id string) error
}

type sectionRepo struct{ db *pgxpool.Pool }

func NewSectionRepo(db *pgxpool.Pool) SectionRepo { return &sectionRepo{db: db} }

// IsUniqueViolation — нарушение уникального индекса (slug/full_path).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const sectionCols = `
	id, title, slug, full_path, description, cover_image, parent_id, parent_path,
	level, "order", in_main_menu, menu_title, modules, child_types,
	show_children_list, seo, tags, status, views, created_at, updated_at
`

// Списки отдаются без modules — это самая тяжёлая колонка.
const sectionColsBrief = `
	id, title, slug, full_path, description, cover_image, parent_id, parent_path,
	level, "order", in_main_menu, menu_title, NULL::jsonb, child_types,
	show_children_list, seo, tags, status, views, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSection(row rowScanner) (*models.Section, error) {
	var (
		s             models.Section
		coverRaw      []byte
		modulesRaw    []byte
		childTypesRaw []byte
		seoRaw        []byte
		tagsRaw       []byte
	)

	err := row.Scan(
		&s.ID, &s.Title, &s.Slug, &s.FullPath, &s.Description, &coverRaw,
		&s.ParentID, &s.ParentPath, &s.Level, &s.Order, &s.InMainMenu,
		&s.MenuTitle, &modulesRaw, &childTypesRaw, &s.ShowChildrenList,
		&seoRaw, &tagsRaw, &s.Status, &s.Views, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(coverRaw) > 0 {
		_ = json.Unmarshal(coverRaw, &s.CoverImage)
	}
	if len(modulesRaw) > 0 {
		s.Modules = json.RawMessage(modulesRaw)
	}
	_ = json.Unmarshal(childTypesRaw, &s.ChildTypes)
	_ = json.Unmarshal(seoRaw, &s.SEO)
	_ = json.Unmarshal(tagsRaw, &s.Tags)

	return &s, nil
}

func marshalSectionPayload(s *models.Section) (cover, modules, childTypes, seo, tags []byte) {
	if s.CoverImage != nil {
		cover, _ = json.Marshal(s.CoverImage)
	}
	if len(s.Modules) > 0 {
		modules = []byte(s.Modules)
	} else {
		modules = []byte("[]")
	}
	if s.ChildTypes == nil {
		childTypes = []byte("[]")
	} else {
		childTypes, _ = json.Marshal(s.ChildTypes)
	}
	seo, _ = json.Marshal(s.SEO)
	if s.Tags == nil {
		tags = []byte("[]")
	} else {
		tags, _ = json.Marshal(s.Tags)
	}
	return
}

func (r *sectionRepo) Insert(ctx context.Context, s *models.Section) error {
	cover, modules, childTypes, seo, tags := marshalSectionPayload(s)

	const q = `
		INSERT INTO sections (
			id, title, slug, full_path, description, cover_image, parent_id, parent_path,
			level, "order", in_main_menu, menu_title, modules, child_types,
			show_children_list, seo, tags, status, views, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7,$8,$9,$10,$11,$12,$13::jsonb,$14::jsonb,$15,$16::jsonb,$17::jsonb,$18,$19,$20,$21)
	`
	_, err := r.db.Exec(ctx, q,
		s.ID, s.Title, s.Slug, s.FullPath, s.Description, cover, s.ParentID, s.ParentPath,
		s.Level, s.Order, s.InMainMenu, s.MenuTitle, modules, childTypes,
		s.ShowChildrenList, seo, tags, s.Status, s.Views, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *sectionRepo) GetByID(ctx context.Context, id string) (*models.Section, error) {
	q := `SELECT ` + sectionCols + ` FROM sections WHERE id = $1`
	return scanSection(r.db.QueryRow(ctx, q, id))
}

// GetBySlug: slug уникален только в рамках родителя, поэтому при дублях
// детерминированно берём самый "верхний" и ранний раздел.
func (r *sectionRepo) GetBySlug(ctx context.Context, slug string) (*models.Section, error) {
	q := `SELECT ` + sectionCols + ` FROM sections WHERE slug = $1
	      ORDER BY level, "order", created_at LIMIT 1`
	return scanSection(r.db.QueryRow(ctx, q, slug))
}

func (r *sectionRepo) GetByPath(ctx context.Context, fullPath string) (*models.Section, error) {
	q := `SELECT ` + sectionCols + ` FROM sections WHERE full_path = $1`
	return scanSection(r.db.QueryRow(ctx, q, fullPath))
}

func (r *sectionRepo) SiblingSlugExists(ctx context.Context, slug string, parentID *string) (bool, error) {
	var exists bool
	var err error
	if parentID == nil {
		err = r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM sections WHERE slug = $1 AND parent_id IS NULL)`,
			slug,
		).Scan(&exists)
	} else {
		err = r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM sections WHERE slug = $1 AND parent_id = $2)`,
			slug, *parentID,
		).Scan(&exists)
	}
	return exists, err
}

func (r *sectionRepo) List(ctx context.Context, f models.SectionFilter) ([]models.Section, int, error) {
	where := []string{}
	args := []interface{}{}
	i := 1

	if f.RootsOnly {
		where = append(where, "parent_id IS NULL")
	} else if f.ParentID != nil {
		where = append(where, fmt.Sprintf("parent_id = $%d", i))
		args = append(args, *f.ParentID)
		i++
	}
	if f.Level != nil {
		where = append(where, fmt.Sprintf("level = $%d", i))
		args = append(args, *f.Level)
		i++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", i))
		args = append(args, *f.Status)
		i++
	}
	if f.InMainMenu != nil {
		where = append(where, fmt.Sprintf("in_main_menu = $%d", i))
		args = append(args, *f.InMainMenu)
		i++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", i, i))
		args = append(args, "%"+f.Search+"%")
		i++
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sections`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + sectionColsBrief + ` FROM sections` + cond +
		fmt.Sprintf(` ORDER BY "order" ASC, created_at ASC LIMIT $%d OFFSET $%d`, i, i+1)
	args = append(args, f.Limit, f.Skip)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectSections(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *sectionRepo) ListAll(ctx context.Context, status *string) ([]models.Section, error) {
	q := `SELECT ` + sectionColsBrief + ` FROM sections`
	args := []interface{}{}
	if status != nil {
		q += ` WHERE status = $1`
		args = append(args, *status)
	}
	q += ` ORDER BY "order" ASC, created_at ASC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSections(rows)
}

func (r *sectionRepo) ListChildren(ctx context.Context, parentID string, skip, limit int, status *string) ([]models.Section, int, error) {
	where := `WHERE parent_id = $1`
	args := []interface{}{parentID}
	i := 2

	if status != nil {
		where += fmt.Sprintf(` AND status = $%d`, i)
		args = append(args, *status)
		i++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sections `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + sectionColsBrief + ` FROM sections ` + where +
		fmt.Sprintf(` ORDER BY "order" ASC, created_at ASC LIMIT $%d OFFSET $%d`, i, i+1)
	args = append(args, limit, skip)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectSections(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ChildrenOf — все прямые дети, без пагинации (для обхода поддерева).
func (r *sectionRepo) ChildrenOf(ctx context.Context, parentID string) ([]models.Section, error) {
	q := `SELECT ` + sectionColsBrief + ` FROM sections WHERE parent_id = $1 ORDER BY "order" ASC, created_at ASC`
	rows, err := r.db.Query(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSections(rows)
}

func (r *sectionRepo) CountChildren(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sections WHERE parent_id = $1`, id).Scan(&n)
	return n, err
}

func (r *sectionRepo) Update(ctx context.Context, s *models.Section) error {
	return r.UpdateWithPaths(ctx, s, nil)
}

func (r *sectionRepo) UpdateWithPaths(ctx context.Context, s *models.Section, paths []PathUpdate) error {
	cover, modules, childTypes, seo, tags := marshalSectionPayload(s)

	const q = `
		UPDATE sections SET
			title=$1, slug=$2, full_path=$3, description=$4, cover_image=$5::jsonb,
			parent_id=$6, parent_path=$7, level=$8, "order"=$9, in_main_menu=$10,
			menu_title=$11, modules=$12::jsonb, child_types=$13::jsonb,
			show_children_list=$14, seo=$15::jsonb, tags=$16::jsonb, status=$17,
			updated_at=NOW()
		WHERE id=$18
	`

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, q,
		s.Title, s.Slug, s.FullPath, s.Description, cover,
		s.ParentID, s.ParentPath, s.Level, s.Order, s.InMainMenu,
		s.MenuTitle, modules, childTypes,
		s.ShowChildrenList, seo, tags, s.Status,
		s.ID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	for _, p := range paths {
		if _, err := tx.Exec(ctx,
			`UPDATE sections SET full_path=$1, parent_path=$2, level=$3, updated_at=NOW() WHERE id=$4`,
			p.FullPath, p.ParentPath, p.Level, p.ID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *sectionRepo) DeleteMany(ctx context.Context, ids []string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sections WHERE id = ANY($1)`, ids)
	return err
}

func (r *sectionRepo) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE sections SET views = views + 1 WHERE id = $1`, id)
	return err
}

func collectSections(rows pgx.Rows) ([]models.Section, error) {
	var list []models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
