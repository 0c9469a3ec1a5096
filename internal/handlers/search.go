package handlers

import (
	"net/http"

	"humorpedia/internal/logger"
	"humorpedia/internal/models"
	"humorpedia/internal/services"
	helpers "humorpedia/internal/utils/helpers"

	"go.uber.org/zap"
)

type SearchHandler struct {
	sections services.SectionService
	tags     services.TagService
}

func NewSearchHandler(sections services.SectionService, tags services.TagService) *SearchHandler {
	return &SearchHandler{sections: sections, tags: tags}
}

// GlobalSearch
// @Summary      Глобальный поиск по разделам и тегам
// @Tags         search
// @Produce      json
// @Param        q  query  string  true  "Поисковая строка"
// @Success      200 {object} map[string]any
// @Failure      400 {object} helpers.Response
// @Router       /api/search [get]
func (h *SearchHandler) GlobalSearch(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	q := r.URL.Query().Get("q")
	if q == "" {
		helpers.Error(w, http.StatusBadRequest, "пустой поисковый запрос")
		return
	}

	log.Info("Глобальный поиск", zap.String("q", q))

	sections, err := h.sections.List(r.Context(), models.SectionFilter{Search: q, Limit: 20})
	if err != nil {
		log.Error("search: ошибка поиска по разделам", zap.Error(err))
		serviceError(w, err)
		return
	}

	tags, err := h.tags.List(r.Context(), q, "usage", 0, 20)
	if err != nil {
		log.Error("search: ошибка поиска по тегам", zap.Error(err))
		serviceError(w, err)
		return
	}

	helpers.JSON(w, http.StatusOK, map[string]any{
		"sections": sections.Items,
		"tags":     tags.Items,
	})
}
