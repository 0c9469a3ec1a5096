package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"humorpedia/internal/models"
)

type TagRepo interface {
	Insert(ctx context.Context, t *models.Tag) error
	GetByNameInsensitive(ctx context.Context, name string) (*models.Tag, error)
	GetByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Tag, error)
	NameOrSlugExists(ctx context.Context, name, slug, excludeID string) (bool, error)
	List(ctx context.Context, search, sortBy string, skip, limit int) ([]models.Tag, int, error)
	Popular(ctx context.Context, limit int) ([]models.Tag, error)
	Update(ctx context.Context, id, name, slug string) error
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
	// RecalcUsage пересчитывает usage_count по массивам tags разделов.
	RecalcUsage(ctx context.Context) (int, error)
}

type tagRepo struct{ db *pgxpool.Pool }

func NewTagRepo(db *pgxpool.Pool) TagRepo { return &tagRepo{db: db} }

const tagCols = `id, name, slug, old_id, usage_count, created_at`

func scanTag(row rowScanner) (*models.Tag, error) {
	var t models.Tag
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.OldID, &t.UsageCount, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tagRepo) Insert(ctx context.Context, t *models.Tag) error {
	const q = `
		INSERT INTO tags (id, name, slug, old_id, usage_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	_, err := r.db.Exec(ctx, q, t.ID, t.Name, t.Slug, t.OldID, t.UsageCount, t.CreatedAt)
	return err
}

func (r *tagRepo) GetByNameInsensitive(ctx context.Context, name string) (*models.Tag, error) {
	q := `SELECT ` + tagCols + ` FROM tags WHERE LOWER(name) = LOWER($1)`
	return scanTag(r.db.QueryRow(ctx, q, name))
}

func (r *tagRepo) GetByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Tag, error) {
	q := `SELECT ` + tagCols + ` FROM tags WHERE id = $1 OR slug = $1 LIMIT 1`
	return scanTag(r.db.QueryRow(ctx, q, idOrSlug))
}

func (r *tagRepo) NameOrSlugExists(ctx context.Context, name, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tags WHERE (name = $1 OR slug = $2) AND id <> $3)`,
		name, slug, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *tagRepo) List(ctx context.Context, search, sortBy string, skip, limit int) ([]models.Tag, int, error) {
	where := []string{}
	args := []interface{}{}
	i := 1

	if search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", i))
		args = append(args, "%"+search+"%")
		i++
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tags`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `usage_count DESC`
	switch sortBy {
	case "name":
		order = `name ASC`
	case "created":
		order = `created_at DESC`
	}

	q := `SELECT ` + tagCols + ` FROM tags` + cond +
		fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, i, i+1)
	args = append(args, limit, skip)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list, err := collectTags(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *tagRepo) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	q := `SELECT ` + tagCols + ` FROM tags ORDER BY usage_count DESC LIMIT $1`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTags(rows)
}

func (r *tagRepo) Update(ctx context.Context, id, name, slug string) error {
	ct, err := r.db.Exec(ctx, `UPDATE tags SET name=$1, slug=$2 WHERE id=$3`, name, slug, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tagRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tagRepo) IncrementUsage(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE tags SET usage_count = usage_count + 1 WHERE id=$1`, id)
	return err
}

func (r *tagRepo) RecalcUsage(ctx context.Context) (int, error) {
	// tags у разделов — jsonb-массив строк, оператор ? проверяет вхождение
	const q = `
		UPDATE tags t
		SET usage_count = (SELECT COUNT(*) FROM sections s WHERE s.tags ? t.name)
	`
	ct, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func collectTags(rows pgx.Rows) ([]models.Tag, error) {
	var list []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
