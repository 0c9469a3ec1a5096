package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"humorpedia/internal/logger"
	"humorpedia/internal/models"
	"humorpedia/internal/services"
	helpers "humorpedia/internal/utils/helpers"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type SectionHandler struct{ svc services.SectionService }

func NewSectionHandler(s services.SectionService) *SectionHandler {
	return &SectionHandler{svc: s}
}

// serviceError переводит доменную ошибку в HTTP-статус.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		helpers.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		helpers.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidOperation):
		helpers.Error(w, http.StatusBadRequest, err.Error())
	default:
		helpers.Error(w, http.StatusInternalServerError, err.Error())
	}
}

func parseSkipLimit(r *http.Request, defLimit, maxLimit int) (int, int) {
	skip := 0
	limit := defLimit

	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

func statusFilter(r *http.Request) *string {
	if v := r.URL.Query().Get("status"); v != "" && models.IsValidStatus(v) {
		return &v
	}
	return nil
}

// Create
// @Summary      Создать раздел
// @Description  Доступно только администратору. slug уникален в рамках родителя.
// @Tags         sections
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateSectionRequest  true  "Данные раздела"
// @Success      201   {object} models.CreateSectionResult
// @Failure      400   {object} helpers.Response
// @Failure      404   {object} helpers.Response
// @Failure      409   {object} helpers.Response
// @Router       /api/admin/sections [post]
func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req models.CreateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("sections: невалидный JSON при создании", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "bad json")
		return
	}

	res, err := h.svc.Create(r.Context(), req)
	if err != nil {
		log.Error("sections: ошибка создания", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusCreated, res)
}

// List
// @Summary      Список разделов
// @Description  Фильтры комбинируются по И. parent_id=null отдаёт только корни. modules в список не входят.
// @Tags         sections
// @Produce      json
// @Param        skip          query  int     false  "Смещение"
// @Param        limit         query  int     false  "Размер страницы (до 500)"
// @Param        parent_id     query  string  false  "ID родителя или null"
// @Param        level         query  int     false  "Уровень вложенности"
// @Param        status        query  string  false  "draft|published|archived"
// @Param        in_main_menu  query  bool    false  "Только главное меню"
// @Param        search        query  string  false  "Подстрока в title/description"
// @Success      200 {object} models.SectionList
// @Failure      500 {object} helpers.Response
// @Router       /api/sections [get]
func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	f := models.SectionFilter{Search: r.URL.Query().Get("search")}
	f.Skip, f.Limit = parseSkipLimit(r, 100, 500)

	q := r.URL.Query()
	if q.Has("parent_id") {
		v := q.Get("parent_id")
		if v == "" || v == "null" {
			f.RootsOnly = true
		} else {
			f.ParentID = &v
		}
	}
	if v := q.Get("level"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Level = &n
		}
	}
	f.Status = statusFilter(r)
	if v := q.Get("in_main_menu"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.InMainMenu = &b
		}
	}

	res, err := h.svc.List(r.Context(), f)
	if err != nil {
		log.Error("sections: ошибка получения списка", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}

// Tree
// @Summary      Дерево разделов
// @Description  Лес корневых разделов с вложенными детьми, отсортирован по order
// @Tags         sections
// @Produce      json
// @Param        status  query  string  false  "draft|published|archived"
// @Success      200 {array} models.SectionTree
// @Failure      500 {object} helpers.Response
// @Router       /api/sections/tree [get]
func (h *SectionHandler) Tree(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	tree, err := h.svc.Tree(r.Context(), statusFilter(r))
	if err != nil {
		log.Error("sections: ошибка построения дерева", zap.Error(err))
		serviceError(w, err)
		return
	}

	log.Info("sections: дерево получено", zap.Int("roots", len(tree)))
	helpers.JSON(w, http.StatusOK, tree)
}

// Get
// @Summary      Получить раздел по ID, slug или полному пути
// @Description  Порядок поиска: id, затем slug, затем full_path. При дублях slug каноничный способ адресации — full_path.
// @Tags         sections
// @Produce      json
// @Param        id_or_slug       path   string  true   "ID, slug или путь"
// @Param        increment_views  query  bool    false  "Учитывать просмотр (по умолчанию true)"
// @Success      200 {object} models.SectionDetail
// @Failure      404 {object} helpers.Response
// @Router       /api/sections/{id_or_slug} [get]
func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	idOrSlug := mux.Vars(r)["id_or_slug"]

	incrementViews := true
	if v := r.URL.Query().Get("increment_views"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			incrementViews = b
		}
	}

	res, err := h.svc.Get(r.Context(), idOrSlug, incrementViews)
	if err != nil {
		log.Warn("sections: раздел не получен", zap.String("id_or_slug", idOrSlug), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}

// GetByPath
// @Summary      Получить раздел по полному пути
// @Description  Например /kvn/vysshaya-liga/2005
// @Tags         sections
// @Produce      json
// @Param        path  path  string  true  "Полный путь раздела"
// @Success      200 {object} models.SectionDetail
// @Failure      404 {object} helpers.Response
// @Router       /api/sections/path/{path} [get]
func (h *SectionHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	path := mux.Vars(r)["path"]

	res, err := h.svc.GetByPath(r.Context(), path, true)
	if err != nil {
		log.Warn("sections: раздел по пути не получен", zap.String("path", path), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}

// Children
// @Summary      Прямые дети раздела
// @Tags         sections
// @Produce      json
// @Param        id      path   string  true   "ID раздела"
// @Param        skip    query  int     false  "Смещение"
// @Param        limit   query  int     false  "Размер страницы (до 200)"
// @Param        status  query  string  false  "draft|published|archived"
// @Success      200 {object} models.SectionChildren
// @Failure      404 {object} helpers.Response
// @Router       /api/sections/{id}/children [get]
func (h *SectionHandler) Children(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	id := mux.Vars(r)["id"]
	skip, limit := parseSkipLimit(r, 50, 200)

	res, err := h.svc.Children(r.Context(), id, skip, limit, statusFilter(r))
	if err != nil {
		log.Warn("sections: дети раздела не получены", zap.String("id", id), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}

// Update
// @Summary      Обновить раздел
// @Description  Доступно только администратору. Смена slug или parent_id каскадно пересчитывает пути потомков. parent_id=null переносит раздел в корень.
// @Tags         sections
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID раздела"
// @Param        body  body  models.UpdateSectionRequest  true  "Обновляемые поля"
// @Success      200   {object} models.UpdateSectionResult
// @Failure      400   {object} helpers.Response
// @Failure      404   {object} helpers.Response
// @Failure      409   {object} helpers.Response
// @Router       /api/admin/sections/{id} [put]
func (h *SectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	id := mux.Vars(r)["id"]

	var req models.UpdateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("sections: невалидный JSON при обновлении", zap.String("id", id), zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "bad json")
		return
	}

	res, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		log.Error("sections: ошибка обновления", zap.String("id", id), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}

// Delete
// @Summary      Удалить раздел
// @Description  Доступно только администратору. При cascade=true удаляется всё поддерево (атомарно), без cascade раздел с детьми не удаляется.
// @Tags         sections
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id       path   string  true   "ID раздела"
// @Param        cascade  query  bool    false  "Удалить вместе с потомками"
// @Success      200 {object} models.DeleteSectionResult
// @Failure      400 {object} helpers.Response
// @Failure      404 {object} helpers.Response
// @Router       /api/admin/sections/{id} [delete]
func (h *SectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	id := mux.Vars(r)["id"]

	cascade := false
	if v := r.URL.Query().Get("cascade"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cascade = b
		}
	}

	res, err := h.svc.Delete(r.Context(), id, cascade)
	if err != nil {
		log.Error("sections: ошибка удаления", zap.String("id", id), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}
