package admin

import (
	"net/http"

	"github.com/EmpoweredVote/academic-portal/internal/middleware"
	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(fetcher middleware.SessionFetcher, hub *workspace.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.PanelStack(fetcher, hub, session.PanelAdmin)...)

	r.Get("/users", ListUsersHandler)
	r.Post("/users", CreateUserHandler)
	r.Put("/users/{id}", UpdateUserHandler)
	r.Delete("/users/{id}", DeleteUserHandler)

	r.Get("/roles", ListRolesHandler)
	r.Post("/roles", CreateRoleHandler)
	r.Put("/roles/{id}", UpdateRoleHandler)
	r.Delete("/roles/{id}", DeleteRoleHandler)

	r.Get("/reports", ListReportsHandler)
	r.Delete("/reports/{id}", DeleteReportHandler)

	r.Get("/logs", ListLogsHandler)

	return r
}
