package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"humorpedia/internal/logger"
	"humorpedia/internal/models"
	"humorpedia/internal/repository"
	"humorpedia/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

type SectionService interface {
	Create(ctx context.Context, req models.CreateSectionRequest) (*models.CreateSectionResult, error)
	Get(ctx context.Context, idOrSlug string, incrementViews bool) (*models.SectionDetail, error)
	GetByPath(ctx context.Context, path string, incrementViews bool) (*models.SectionDetail, error)
	List(ctx context.Context, f models.SectionFilter) (*models.SectionList, error)
	Children(ctx context.Context, parentID string, skip, limit int, status *string) (*models.SectionChildren, error)
	Tree(ctx context.Context, status *string) ([]*models.SectionTree, error)
	Update(ctx context.Context, id string, req models.UpdateSectionRequest) (*models.UpdateSectionResult, error)
	Delete(ctx context.Context, id string, cascade bool) (*models.DeleteSectionResult, error)
}

type sectionService struct {
	repo   repository.SectionRepo
	tags   TagService
	policy *bluemonday.Policy
}

func NewSectionService(repo repository.SectionRepo, tags TagService) SectionService {
	p := bluemonday.UGCPolicy()
	p.AllowElements("img")
	p.AllowAttrs("src", "alt").OnElements("img")
	return &sectionService{repo: repo, tags: tags, policy: p}
}

func notFound(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// buildFullPath вычисляет full_path/level/parent_path раздела по родителю.
func (s *sectionService) buildFullPath(ctx context.Context, parentID *string, slug string) (string, int, *string, error) {
	if parentID == nil {
		return "/" + slug, 0, nil, nil
	}

	parent, err := s.repo.GetByID(ctx, *parentID)
	if err != nil {
		if notFound(err) {
			return "", 0, nil, fmt.Errorf("%w: родительский раздел не существует", ErrNotFound)
		}
		return "", 0, nil, err
	}

	parentPath := parent.FullPath
	return parentPath + "/" + slug, parent.Level + 1, &parentPath, nil
}

// checkCircular проверяет, что новый родитель не создаёт цикл: идём вверх
// по цепочке parent_id. Повторное посещение узла — защита от уже
// испорченных данных.
func (s *sectionService) checkCircular(ctx context.Context, id string, newParentID *string) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == id {
		return fmt.Errorf("%w: раздел не может быть родителем самого себя", ErrInvalidOperation)
	}

	visited := map[string]struct{}{}
	current := *newParentID

	for {
		if current == id {
			return fmt.Errorf("%w: перенос создал бы циклическую ссылку", ErrInvalidOperation)
		}
		if _, ok := visited[current]; ok {
			return fmt.Errorf("%w: в цепочке родителей обнаружен цикл", ErrInvalidOperation)
		}
		visited[current] = struct{}{}

		parent, err := s.repo.GetByID(ctx, current)
		if err != nil {
			if notFound(err) {
				// висячая ссылка — цикл невозможен
				return nil
			}
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

// collectPathUpdates обходит потомков сверху вниз и собирает их новые пути:
// путь и уровень ребёнка зависят от уже пересчитанного родителя.
func (s *sectionService) collectPathUpdates(ctx context.Context, id, newPath string, newLevel int) ([]repository.PathUpdate, error) {
	children, err := s.repo.ChildrenOf(ctx, id)
	if err != nil {
		return nil, err
	}

	var updates []repository.PathUpdate
	for _, child := range children {
		parentPath := newPath
		childPath := newPath + "/" + child.Slug
		updates = append(updates, repository.PathUpdate{
			ID:         child.ID,
			FullPath:   childPath,
			ParentPath: &parentPath,
			Level:      newLevel + 1,
		})

		sub, err := s.collectPathUpdates(ctx, child.ID, childPath, newLevel+1)
		if err != nil {
			return nil, err
		}
		updates = append(updates, sub...)
	}
	return updates, nil
}

func (s *sectionService) Create(ctx context.Context, req models.CreateSectionRequest) (*models.CreateSectionResult, error) {
	log := logger.WithCtx(ctx)
	log.Info("Создание раздела",
		zap.String("title", req.Title),
		zap.String("slug", req.Slug),
		zap.Any("parent_id", req.ParentID),
	)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: заголовок обязателен", ErrInvalidOperation)
	}
	slug := utils.Slugify(req.Slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug обязателен", ErrInvalidOperation)
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrInvalidOperation, status)
	}

	// Уникальность slug среди соседей (для корней — среди корней)
	exists, err := s.repo.SiblingSlugExists(ctx, slug, req.ParentID)
	if err != nil {
		log.Error("Ошибка проверки уникальности slug (repo)", zap.Error(err))
		return nil, err
	}
	if exists {
		log.Warn("Раздел с таким slug уже существует на этом уровне", zap.String("slug", slug))
		return nil, fmt.Errorf("%w: раздел с таким slug уже существует на этом уровне", ErrConflict)
	}

	fullPath, level, parentPath, err := s.buildFullPath(ctx, req.ParentID, slug)
	if err != nil {
		return nil, err
	}

	showChildren := true
	if req.ShowChildrenList != nil {
		showChildren = *req.ShowChildrenList
	}
	seo := models.SEOData{}
	if req.SEO != nil {
		seo = *req.SEO
	}

	now := time.Now().UTC()
	section := &models.Section{
		ID:               uuid.NewString(),
		Title:            title,
		Slug:             slug,
		FullPath:         fullPath,
		Description:      s.sanitizeDescription(req.Description),
		CoverImage:       req.CoverImage,
		ParentID:         req.ParentID,
		ParentPath:       parentPath,
		Level:            level,
		Order:            req.Order,
		InMainMenu:       req.InMainMenu,
		MenuTitle:        req.MenuTitle,
		Modules:          req.Modules,
		ChildTypes:       req.ChildTypes,
		ShowChildrenList: showChildren,
		SEO:              seo,
		Tags:             req.Tags,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Синк в реестр тегов — побочный эффект, его консистентность
	// не входит в контракт раздела
	if len(req.Tags) > 0 {
		if err := s.tags.SyncTags(ctx, req.Tags); err != nil {
			log.Warn("Не удалось синхронизировать теги", zap.Error(err))
		}
	}

	if err := s.repo.Insert(ctx, section); err != nil {
		if repository.IsUniqueViolation(err) {
			log.Warn("Гонка на создании: уникальный индекс отклонил вставку", zap.String("slug", slug))
			return nil, fmt.Errorf("%w: раздел с таким slug уже существует на этом уровне", ErrConflict)
		}
		log.Error("Ошибка создания раздела (repo)", zap.Error(err))
		return nil, err
	}

	log.Info("Раздел создан",
		zap.String("id", section.ID),
		zap.String("full_path", section.FullPath),
		zap.Int("level", section.Level),
	)
	return &models.CreateSectionResult{ID: section.ID, Slug: section.Slug, FullPath: section.FullPath}, nil
}

// Get ищет раздел по id, затем по slug, затем по full_path (с "/" и без).
// Порядок важен: совпадение по id выигрывает у случайного совпадения по slug.
func (s *sectionService) Get(ctx context.Context, idOrSlug string, incrementViews bool) (*models.SectionDetail, error) {
	log := logger.WithCtx(ctx)
	log.Debug("Получение раздела", zap.String("id_or_slug", idOrSlug))

	section, err := s.repo.GetByID(ctx, idOrSlug)
	if err != nil && notFound(err) {
		section, err = s.repo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil && notFound(err) {
		section, err = s.repo.GetByPath(ctx, "/"+idOrSlug)
	}
	if err != nil && notFound(err) {
		section, err = s.repo.GetByPath(ctx, idOrSlug)
	}
	if err != nil {
		if notFound(err) {
			log.Warn("Раздел не найден", zap.String("id_or_slug", idOrSlug))
			return nil, fmt.Errorf("%w: раздел не существует", ErrNotFound)
		}
		log.Error("Ошибка получения раздела (repo)", zap.Error(err))
		return nil, err
	}

	return s.detail(ctx, section, incrementViews)
}

func (s *sectionService) GetByPath(ctx context.Context, path string, incrementViews bool) (*models.SectionDetail, error) {
	log := logger.WithCtx(ctx)

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	log.Debug("Получение раздела по пути", zap.String("full_path", path))

	section, err := s.repo.GetByPath(ctx, path)
	if err != nil {
		if notFound(err) {
			log.Warn("Раздел по пути не найден", zap.String("full_path", path))
			return nil, fmt.Errorf("%w: раздел не существует", ErrNotFound)
		}
		log.Error("Ошибка получения раздела по пути (repo)", zap.Error(err))
		return nil, err
	}

	return s.detail(ctx, section, incrementViews)
}

// detail обогащает раздел счётчиком детей и хлебными крошками.
func (s *sectionService) detail(ctx context.Context, section *models.Section, incrementViews bool) (*models.SectionDetail, error) {
	log := logger.WithCtx(ctx)

	if incrementViews {
		if err := s.repo.IncrementViews(ctx, section.ID); err != nil {
			log.Warn("Не удалось увеличить счётчик просмотров", zap.String("id", section.ID), zap.Error(err))
		}
	}

	childrenCount, err := s.repo.CountChildren(ctx, section.ID)
	if err != nil {
		log.Error("Ошибка подсчёта детей (repo)", zap.String("id", section.ID), zap.Error(err))
		return nil, err
	}

	breadcrumbs := []models.Breadcrumb{}
	broken := false
	visited := map[string]struct{}{section.ID: {}}
	current := section.ParentID

	for current != nil {
		if _, ok := visited[*current]; ok {
			broken = true
			break
		}
		visited[*current] = struct{}{}

		parent, err := s.repo.GetByID(ctx, *current)
		if err != nil {
			if notFound(err) {
				// висячий parent_id: обрываем цепочку, но помечаем выдачу
				log.Warn("Висячий parent_id в цепочке предков",
					zap.String("section_id", section.ID),
					zap.String("dangling_parent_id", *current),
				)
				broken = true
				break
			}
			return nil, err
		}

		breadcrumbs = append([]models.Breadcrumb{{
			ID:       parent.ID,
			Title:    parent.Title,
			FullPath: parent.FullPath,
		}}, breadcrumbs...)
		current = parent.ParentID
	}

	return &models.SectionDetail{
		Section:           *section,
		ChildrenCount:     childrenCount,
		Breadcrumbs:       breadcrumbs,
		ParentChainBroken: broken,
	}, nil
}

func (s *sectionService) List(ctx context.Context, f models.SectionFilter) (*models.SectionList, error) {
	log := logger.WithCtx(ctx)
	log.Debug("Список разделов",
		zap.Any("parent_id", f.ParentID),
		zap.Bool("roots_only", f.RootsOnly),
		zap.Int("skip", f.Skip),
		zap.Int("limit", f.Limit),
	)

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		log.Error("Ошибка получения списка разделов (repo)", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []models.Section{}
	}

	return &models.SectionList{Items: items, Total: total, Skip: f.Skip, Limit: f.Limit}, nil
}

func (s *sectionService) Children(ctx context.Context, parentID string, skip, limit int, status *string) (*models.SectionChildren, error) {
	log := logger.WithCtx(ctx)

	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: раздел не существует", ErrNotFound)
		}
		log.Error("Ошибка получения родителя (repo)", zap.Error(err))
		return nil, err
	}

	items, total, err := s.repo.ListChildren(ctx, parentID, skip, limit, status)
	if err != nil {
		log.Error("Ошибка получения детей раздела (repo)", zap.String("id", parentID), zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []models.Section{}
	}

	return &models.SectionChildren{
		Items: items,
		Total: total,
		Skip:  skip,
		Limit: limit,
		Parent: models.Breadcrumb{
			ID:       parent.ID,
			Title:    parent.Title,
			FullPath: parent.FullPath,
		},
	}, nil
}

// Tree строит лес за два прохода: сначала индекс всех узлов по id, затем
// привязка детей — порядок узлов на входе не важен.
func (s *sectionService) Tree(ctx context.Context, status *string) ([]*models.SectionTree, error) {
	log := logger.WithCtx(ctx)

	all, err := s.repo.ListAll(ctx, status)
	if err != nil {
		log.Error("Ошибка загрузки разделов для дерева (repo)", zap.Error(err))
		return nil, err
	}

	index := make(map[string]*models.SectionTree, len(all))
	roots := []*models.SectionTree{}

	for i := range all {
		sec := &all[i]
		node := &models.SectionTree{
			ID:         sec.ID,
			Title:      sec.Title,
			Slug:       sec.Slug,
			FullPath:   sec.FullPath,
			Level:      sec.Level,
			Order:      sec.Order,
			Status:     sec.Status,
			InMainMenu: sec.InMainMenu,
			Children:   []*models.SectionTree{},
		}
		index[sec.ID] = node

		if sec.ParentID == nil {
			roots = append(roots, node)
		}
	}

	orphans := 0
	for i := range all {
		sec := &all[i]
		if sec.ParentID == nil {
			continue
		}
		parent, ok := index[*sec.ParentID]
		if !ok {
			// родитель отфильтрован или удалён — узел выпадает из леса
			orphans++
			continue
		}
		parent.Children = append(parent.Children, index[sec.ID])
	}

	if orphans > 0 {
		log.Warn("Дерево разделов: узлы без родителя исключены из выдачи", zap.Int("orphans", orphans))
	}

	log.Debug("Дерево разделов построено", zap.Int("total", len(all)), zap.Int("roots", len(roots)))
	return roots, nil
}

func (s *sectionService) Update(ctx context.Context, id string, req models.UpdateSectionRequest) (*models.UpdateSectionResult, error) {
	log := logger.WithCtx(ctx)
	log.Info("Обновление раздела", zap.String("id", id), zap.Bool("parent_changed", req.ParentIDSet))

	section, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: раздел не существует", ErrNotFound)
		}
		log.Error("Ошибка получения раздела для обновления (repo)", zap.Error(err))
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: заголовок обязателен", ErrInvalidOperation)
		}
		section.Title = title
	}
	if req.Description != nil {
		section.Description = s.sanitizeDescription(req.Description)
	}
	if req.CoverImage != nil {
		section.CoverImage = req.CoverImage
	}
	if req.Order != nil {
		section.Order = *req.Order
	}
	if req.InMainMenu != nil {
		section.InMainMenu = *req.InMainMenu
	}
	if req.MenuTitle != nil {
		section.MenuTitle = req.MenuTitle
	}
	if req.Modules != nil {
		section.Modules = req.Modules
	}
	if req.ChildTypes != nil {
		section.ChildTypes = req.ChildTypes
	}
	if req.ShowChildrenList != nil {
		section.ShowChildrenList = *req.ShowChildrenList
	}
	if req.SEO != nil {
		section.SEO = *req.SEO
	}
	if req.Status != nil {
		if !models.IsValidStatus(*req.Status) {
			return nil, fmt.Errorf("%w: неизвестный статус %q", ErrInvalidOperation, *req.Status)
		}
		section.Status = *req.Status
	}

	newSlug := section.Slug
	if req.Slug != nil {
		newSlug = utils.Slugify(*req.Slug)
		if newSlug == "" {
			return nil, fmt.Errorf("%w: slug обязателен", ErrInvalidOperation)
		}
	}

	var pathUpdates []repository.PathUpdate

	switch {
	case req.ParentIDSet:
		// Смена родителя: сначала проверка на цикл, без неё частичная
		// мутация недопустима
		if err := s.checkCircular(ctx, id, req.ParentID); err != nil {
			log.Warn("Перенос раздела отклонён", zap.String("id", id), zap.Error(err))
			return nil, err
		}

		fullPath, level, parentPath, err := s.buildFullPath(ctx, req.ParentID, newSlug)
		if err != nil {
			return nil, err
		}

		section.Slug = newSlug
		section.ParentID = req.ParentID
		section.ParentPath = parentPath
		section.FullPath = fullPath
		section.Level = level

		pathUpdates, err = s.collectPathUpdates(ctx, id, fullPath, level)
		if err != nil {
			log.Error("Ошибка обхода потомков при переносе", zap.String("id", id), zap.Error(err))
			return nil, err
		}

	case req.Slug != nil:
		// Родитель прежний, меняется только slug — пересчёт пути и каскад
		// на потомков
		fullPath, level, parentPath, err := s.buildFullPath(ctx, section.ParentID, newSlug)
		if err != nil {
			return nil, err
		}

		section.Slug = newSlug
		section.ParentPath = parentPath
		section.FullPath = fullPath
		section.Level = level

		pathUpdates, err = s.collectPathUpdates(ctx, id, fullPath, level)
		if err != nil {
			log.Error("Ошибка обхода потомков при переименовании", zap.String("id", id), zap.Error(err))
			return nil, err
		}
	}

	if req.Tags != nil {
		section.Tags = req.Tags
		if err := s.tags.SyncTags(ctx, req.Tags); err != nil {
			log.Warn("Не удалось синхронизировать теги", zap.Error(err))
		}
	}

	section.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateWithPaths(ctx, section, pathUpdates); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: раздел не существует", ErrNotFound)
		}
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: раздел с таким slug уже существует на этом уровне", ErrConflict)
		}
		log.Error("Ошибка обновления раздела (repo)", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	log.Info("Раздел обновлён",
		zap.String("id", id),
		zap.String("full_path", section.FullPath),
		zap.Int("descendants_updated", len(pathUpdates)),
	)
	return &models.UpdateSectionResult{ID: id, Updated: true}, nil
}

func (s *sectionService) Delete(ctx context.Context, id string, cascade bool) (*models.DeleteSectionResult, error) {
	log := logger.WithCtx(ctx)
	log.Info("Удаление раздела", zap.String("id", id), zap.Bool("cascade", cascade))

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: раздел не существует", ErrNotFound)
		}
		log.Error("Ошибка получения раздела для удаления (repo)", zap.Error(err))
		return nil, err
	}

	childrenCount, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		log.Error("Ошибка подсчёта детей (repo)", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if childrenCount > 0 && !cascade {
		log.Warn("Удаление отклонено: у раздела есть дети",
			zap.String("id", id), zap.Int("children", childrenCount))
		return nil, fmt.Errorf("%w: у раздела %d дочерних разделов, используйте cascade=true", ErrInvalidOperation, childrenCount)
	}

	// Собираем всё поддерево и удаляем одним запросом: частично
	// удалённого каскада не бывает
	ids, err := s.collectSubtreeIDs(ctx, id)
	if err != nil {
		log.Error("Ошибка обхода поддерева при удалении", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if err := s.repo.DeleteMany(ctx, ids); err != nil {
		log.Error("Ошибка удаления поддерева (repo)", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	log.Info("Раздел удалён", zap.String("id", id), zap.Int("total_deleted", len(ids)))
	return &models.DeleteSectionResult{ID: id, Deleted: true, Cascaded: cascade}, nil
}

// collectSubtreeIDs — id всех потомков и самого узла, дети раньше родителя.
func (s *sectionService) collectSubtreeIDs(ctx context.Context, id string) ([]string, error) {
	children, err := s.repo.ChildrenOf(ctx, id)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, child := range children {
		sub, err := s.collectSubtreeIDs(ctx, child.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, sub...)
	}
	return append(ids, id), nil
}

func (s *sectionService) sanitizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	clean := s.policy.Sanitize(*desc)
	return &clean
}
