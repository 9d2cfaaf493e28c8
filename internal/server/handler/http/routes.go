package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/middleware"
)

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth          *AuthHandler
	Teams         *TeamHandler
	Users         *UserHandler
	Challenges    *ChallengeHandler
	Notifications *NotificationHandler
}

// NewRouter constructs the dev server API.
//
// Middleware chain (applied in order):
//  1. AllowContentType: rejects bodies that are neither JSON nor multipart
//  2. WithRequestLogging(logger)
//  3. Recoverer
//  4. faults.Middleware, when faults is non-nil
//
// Everything but login and logout requires a session cookie; /admin and
// POST /notifications also require an admin session.
func NewRouter(h Handlers, verifier middleware.TokenVerifier, faults *Faults, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json", "multipart/form-data"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	if faults != nil {
		r.Use(faults.Middleware)
	}

	r.Route(BasePath, func(r chi.Router) {
		r.Post("/users/login", h.Auth.Login)
		r.Post("/users/logout", h.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(verifier))

			r.Get("/users/me", h.Auth.Me)
			r.Get("/teams", h.Teams.List)
			r.Get("/teams/{id}", h.Teams.Get)
			r.Get("/teams/{id}/members", h.Teams.Members)
			r.Get("/notifications", h.Notifications.List)
			r.Get("/sse/notifications", h.Notifications.Stream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Post("/notifications", h.Notifications.Create)

				r.Route("/admin/teams", func(r chi.Router) {
					r.Get("/", h.Teams.ListAdmin)
					r.Post("/", h.Teams.Create)
					r.Patch("/{id}", h.Teams.Update)
					r.Delete("/{id}", h.Teams.Delete)
				})

				r.Route("/admin/users", func(r chi.Router) {
					r.Get("/", h.Users.List)
					r.Post("/", h.Users.Create)
					r.Patch("/{id}", h.Users.Update)
					r.Delete("/{id}", h.Users.Delete)
				})

				r.Route("/admin/challenges", func(r chi.Router) {
					c := h.Challenges
					r.Get("/", c.List)
					r.Post("/", c.Create)
					r.Post("/freezeall", c.Freeze)
					r.Post("/freezeall/{id}", c.Freeze)
					r.Post("/thawall", c.Thaw)
					r.Post("/thawall/{id}", c.Thaw)

					r.Get("/{id}", c.Get)
					r.Patch("/{id}", c.Update)
					r.Delete("/{id}", c.Delete)

					r.Get("/{id}/flags", c.Flags)
					r.Post("/{id}/flags", c.SaveFlag)
					r.Post("/{id}/flags/{flagId}", c.SaveFlag)
					r.Delete("/{id}/flag/{flagId}", c.DeleteFlag)

					r.Get("/{id}/hints", c.Hints)
					r.Post("/{id}/hints", c.SaveHint)
					r.Patch("/{id}/hints/{hintId}", c.SaveHint)
					r.Delete("/{id}/hints/{hintId}", c.DeleteHint)

					r.Get("/{id}/files", c.Files)
					r.Post("/{id}/files", c.Upload)
					r.Get("/{id}/file/{fileId}", c.Download)
					r.Delete("/{id}/file/{fileId}", c.DeleteFile)
				})
			})
		})
	})

	return r
}
