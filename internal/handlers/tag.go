package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"humorpedia/internal/logger"
	"humorpedia/internal/models"
	"humorpedia/internal/services"
	helpers "humorpedia/internal/utils/helpers"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type TagHandler struct{ svc services.TagService }

func NewTagHandler(s services.TagService) *TagHandler {
	return &TagHandler{svc: s}
}

// Create
// @Summary      Создать тег
// @Description  Доступно только администратору. slug генерируется из имени, если не задан.
// @Tags         tags
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateTagRequest  true  "Данные тега"
// @Success      201   {object} models.Tag
// @Failure      400   {object} helpers.Response
// @Failure      409   {object} helpers.Response
// @Router       /api/admin/tags [post]
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req models.CreateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("tags: невалидный JSON при создании", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "bad json")
		return
	}

	tag, err := h.svc.Create(r.Context(), req)
	if err != nil {
		log.Error("tags: ошибка создания", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusCreated, tag)
}

// List
// @Summary      Список тегов
// @Tags         tags
// @Produce      json
// @Param        skip     query  int     false  "Смещение"
// @Param        limit    query  int     false  "Размер страницы (до 500)"
// @Param        search   query  string  false  "Подстрока в имени"
// @Param        sort_by  query  string  false  "usage|name|created"
// @Success      200 {object} models.TagList
// @Failure      500 {object} helpers.Response
// @Router       /api/tags [get]
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	skip, limit := parseSkipLimit(r, 100, 500)
	search := r.URL.Query().Get("search")
	sortBy := r.URL.Query().Get("sort_by")

	res, err := h.svc.List(r.Context(), search, sortBy, skip, limit)
	if err != nil {
		log.Error("tags: ошибка получения списка", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, res)
}

// Popular
// @Summary      Популярные теги
// @Tags         tags
// @Produce      json
// @Param        limit  query  int  false  "Количество (до 100)"
// @Success      200 {array} models.Tag
// @Failure      500 {object} helpers.Response
// @Router       /api/tags/popular [get]
func (h *TagHandler) Popular(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	items, err := h.svc.Popular(r.Context(), limit)
	if err != nil {
		log.Error("tags: ошибка получения популярных", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, items)
}

// Get
// @Summary      Получить тег по ID или slug
// @Tags         tags
// @Produce      json
// @Param        id_or_slug  path  string  true  "ID или slug тега"
// @Success      200 {object} models.Tag
// @Failure      404 {object} helpers.Response
// @Router       /api/tags/{id_or_slug} [get]
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	idOrSlug := mux.Vars(r)["id_or_slug"]

	tag, err := h.svc.Get(r.Context(), idOrSlug)
	if err != nil {
		log.Warn("tags: тег не найден", zap.String("id_or_slug", idOrSlug))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, tag)
}

// Update
// @Summary      Обновить тег
// @Description  Доступно только администратору
// @Tags         tags
// @Security     ApiKeyAuth
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID тега"
// @Param        body  body  models.CreateTagRequest  true  "Новые имя и slug"
// @Success      200   {object} map[string]any
// @Failure      404   {object} helpers.Response
// @Failure      409   {object} helpers.Response
// @Router       /api/admin/tags/{id} [put]
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	id := mux.Vars(r)["id"]

	var req models.CreateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("tags: невалидный JSON при обновлении", zap.String("id", id), zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "bad json")
		return
	}

	if err := h.svc.Update(r.Context(), id, req); err != nil {
		log.Error("tags: ошибка обновления", zap.String("id", id), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, map[string]any{"id": id, "updated": true})
}

// Delete
// @Summary      Удалить тег
// @Description  Доступно только администратору
// @Tags         tags
// @Security     ApiKeyAuth
// @Produce      json
// @Param        id  path  string  true  "ID тега"
// @Success      200 {object} map[string]any
// @Failure      404 {object} helpers.Response
// @Router       /api/admin/tags/{id} [delete]
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	id := mux.Vars(r)["id"]

	if err := h.svc.Delete(r.Context(), id); err != nil {
		log.Error("tags: ошибка удаления", zap.String("id", id), zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// RecalcUsage
// @Summary      Пересчитать счётчики использования тегов
// @Description  Админская задача: usage_count пересчитывается по тегам разделов
// @Tags         tags
// @Security     ApiKeyAuth
// @Produce      json
// @Success      200 {object} map[string]int
// @Failure      500 {object} helpers.Response
// @Router       /api/admin/tags/update-counts [post]
func (h *TagHandler) RecalcUsage(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	n, err := h.svc.RecalcUsage(r.Context())
	if err != nil {
		log.Error("tags: ошибка пересчёта счётчиков", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, map[string]int{"updated": n})
}
