package app

import (
	"humorpedia/internal/config"
	"humorpedia/internal/db"
	"humorpedia/internal/handlers"
	"humorpedia/internal/repository"
	"humorpedia/internal/routes"
	"humorpedia/internal/services"

	"github.com/gorilla/mux"
)

func InitApp(cfg *config.Config) (*mux.Router, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	// Репозитории: хендл хранилища передаётся явно, без глобального состояния
	sectionRepo := repository.NewSectionRepo(conn)
	tagRepo := repository.NewTagRepo(conn)

	// Сервисы
	tagSvc := services.NewTagService(tagRepo)
	sectionSvc := services.NewSectionService(sectionRepo, tagSvc)

	// Хендлеры
	sectionH := handlers.NewSectionHandler(sectionSvc)
	tagH := handlers.NewTagHandler(tagSvc)
	searchH := handlers.NewSearchHandler(sectionSvc, tagSvc)

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, sectionH, tagH, searchH)

	return router, nil
}
