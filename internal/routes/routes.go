package routes

import (
	"net/http"

	"humorpedia/internal/handlers"
	"humorpedia/internal/middleware"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	sectionH *handlers.SectionHandler,
	tagH *handlers.TagHandler,
	searchH *handlers.SearchHandler,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logging)

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	// Специфичные пути регистрируются раньше {id_or_slug}
	api.HandleFunc("/sections", sectionH.List).Methods("GET")
	api.HandleFunc("/sections/tree", sectionH.Tree).Methods("GET")
	api.HandleFunc("/sections/path/{path:.*}", sectionH.GetByPath).Methods("GET")
	api.HandleFunc("/sections/{id}/children", sectionH.Children).Methods("GET")
	api.HandleFunc("/sections/{id_or_slug}", sectionH.Get).Methods("GET")

	api.HandleFunc("/tags", tagH.List).Methods("GET")
	api.HandleFunc("/tags/popular", tagH.Popular).Methods("GET")
	api.HandleFunc("/tags/{id_or_slug}", tagH.Get).Methods("GET")

	api.HandleFunc("/search", searchH.GlobalSearch).Methods("GET")

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth)
	protected.Use(middleware.AdminFastLane)

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.OnlyRole("admin"))
	admin.HandleFunc("/sections", sectionH.Create).Methods("POST")
	admin.HandleFunc("/sections/{id}", sectionH.Update).Methods("PUT")
	admin.HandleFunc("/sections/{id}", sectionH.Delete).Methods("DELETE")

	admin.HandleFunc("/tags", tagH.Create).Methods("POST")
	admin.HandleFunc("/tags/update-counts", tagH.RecalcUsage).Methods("POST")
	admin.HandleFunc("/tags/{id}", tagH.Update).Methods(http.MethodPut, http.MethodOptions)
	admin.HandleFunc("/tags/{id}", tagH.Delete).Methods("DELETE")
}
