package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"humorpedia/internal/logger"
	"humorpedia/internal/models"
	"humorpedia/internal/repository"
	"humorpedia/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TagService interface {
	// SyncTags — create-or-increment: новый тег заводится со счётчиком 1,
	// существующему инкрементируется usage_count
	SyncTags(ctx context.Context, names []string) error
	Create(ctx context.Context, req models.CreateTagRequest) (*models.Tag, error)
	List(ctx context.Context, search, sortBy string, skip, limit int) (*models.TagList, error)
	Popular(ctx context.Context, limit int) ([]models.Tag, error)
	Get(ctx context.Context, idOrSlug string) (*models.Tag, error)
	Update(ctx context.Context, id string, req models.CreateTagRequest) error
	Delete(ctx context.Context, id string) error
	RecalcUsage(ctx context.Context) (int, error)
}

type tagService struct{ repo repository.TagRepo }

func NewTagService(repo repository.TagRepo) TagService {
	return &tagService{repo: repo}
}

func (s *tagService) SyncTags(ctx context.Context, names []string) error {
	log := logger.WithCtx(ctx)

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		existing, err := s.repo.GetByNameInsensitive(ctx, name)
		if err != nil {
			if !notFound(err) {
				return err
			}

			tag := &models.Tag{
				ID:         uuid.NewString(),
				Name:       name,
				Slug:       utils.Slugify(name),
				UsageCount: 1,
				CreatedAt:  time.Now().UTC(),
			}
			if err := s.repo.Insert(ctx, tag); err != nil {
				// гонка двух синков — тег уже создан, это не ошибка
				if repository.IsUniqueViolation(err) {
					continue
				}
				return err
			}
			log.Debug("Тег создан", zap.String("name", name), zap.String("slug", tag.Slug))
			continue
		}

		if err := s.repo.IncrementUsage(ctx, existing.ID); err != nil {
			return err
		}
	}

	return nil
}

func (s *tagService) Create(ctx context.Context, req models.CreateTagRequest) (*models.Tag, error) {
	log := logger.WithCtx(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: имя тега обязательно", ErrInvalidOperation)
	}
	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(name)
	}

	exists, err := s.repo.NameOrSlugExists(ctx, name, slug, "")
	if err != nil {
		log.Error("Ошибка проверки уникальности тега (repo)", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: тег уже существует", ErrConflict)
	}

	tag := &models.Tag{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, tag); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: тег уже существует", ErrConflict)
		}
		log.Error("Ошибка создания тега (repo)", zap.Error(err))
		return nil, err
	}

	log.Info("Тег создан", zap.String("id", tag.ID), zap.String("name", name))
	return tag, nil
}

func (s *tagService) List(ctx context.Context, search, sortBy string, skip, limit int) (*models.TagList, error) {
	log := logger.WithCtx(ctx)

	items, total, err := s.repo.List(ctx, search, sortBy, skip, limit)
	if err != nil {
		log.Error("Ошибка получения списка тегов (repo)", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []models.Tag{}
	}

	return &models.TagList{Items: items, Total: total, Skip: skip, Limit: limit}, nil
}

func (s *tagService) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	log := logger.WithCtx(ctx)

	items, err := s.repo.Popular(ctx, limit)
	if err != nil {
		log.Error("Ошибка получения популярных тегов (repo)", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []models.Tag{}
	}
	return items, nil
}

func (s *tagService) Get(ctx context.Context, idOrSlug string) (*models.Tag, error) {
	tag, err := s.repo.GetByIDOrSlug(ctx, idOrSlug)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: тег не существует", ErrNotFound)
		}
		return nil, err
	}
	return tag, nil
}

func (s *tagService) Update(ctx context.Context, id string, req models.CreateTagRequest) error {
	log := logger.WithCtx(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: имя тега обязательно", ErrInvalidOperation)
	}
	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(name)
	}

	exists, err := s.repo.NameOrSlugExists(ctx, name, slug, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: тег с таким именем уже существует", ErrConflict)
	}

	if err := s.repo.Update(ctx, id, name, slug); err != nil {
		if notFound(err) {
			return fmt.Errorf("%w: тег не существует", ErrNotFound)
		}
		log.Error("Ошибка обновления тега (repo)", zap.String("id", id), zap.Error(err))
		return err
	}

	log.Info("Тег обновлён", zap.String("id", id), zap.String("name", name))
	return nil
}

func (s *tagService) Delete(ctx context.Context, id string) error {
	log := logger.WithCtx(ctx)

	if err := s.repo.Delete(ctx, id); err != nil {
		if notFound(err) {
			return fmt.Errorf("%w: тег не существует", ErrNotFound)
		}
		log.Error("Ошибка удаления тега (repo)", zap.String("id", id), zap.Error(err))
		return err
	}

	log.Info("Тег удалён", zap.String("id", id))
	return nil
}

func (s *tagService) RecalcUsage(ctx context.Context) (int, error) {
	log := logger.WithCtx(ctx)

	n, err := s.repo.RecalcUsage(ctx)
	if err != nil {
		log.Error("Ошибка пересчёта счётчиков тегов (repo)", zap.Error(err))
		return 0, err
	}

	log.Info("Счётчики тегов пересчитаны", zap.Int("updated", n))
	return n, nil
}
