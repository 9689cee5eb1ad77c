package catalog

import (
	"github.com/go-chi/chi/v5"
)

// StudentRoutes registers the curriculum browser and resource upload.
func StudentRoutes(r chi.Router) {
	r.Get("/careers", ListCareersHandler)
	r.Get("/careers/{id}/semesters", CareerSemestersHandler)
	r.Get("/careers/{id}/subjects", ListSubjectsHandler)
	r.Get("/subjects/{subject}/resources", ListResourcesHandler)
	r.Post("/subjects/{subject}/resources", CreateResourceHandler)
	r.Get("/resources/{id}", GetResourceHandler)
	r.Get("/resources/{id}/download", DownloadHandler)
}

// TeacherRoutes registers resource maintenance for teachers.
func TeacherRoutes(r chi.Router) {
	r.Get("/subjects/{subject}/resources", ListResourcesHandler)
	r.Post("/subjects/{subject}/resources", CreateResourceHandler)
	r.Put("/subjects/{subject}/resources/{id}", UpdateResourceHandler)
	r.Delete("/subjects/{subject}/resources/{id}", DeleteResourceHandler)
}
