package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/pets/api/handler"
	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/middleware"
)

type Handlers struct {
	Users  *apiHandler.UserHandler
	Pets   *apiHandler.PetHandler
	Health *apiHandler.HealthHandler
}

type Middleware = func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, authMiddleware Middleware) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Public user routes
	r.PUT("/api/v1/users", handlers.Users.Register)
	r.POST("/api/v1/users/login", handlers.Users.Login)

	r.POST("/api/v1/users/refresh", authMiddleware(handlers.Users.Refresh))
	r.POST("/api/v1/users/logout", authMiddleware(handlers.Users.Logout))
	r.GET("/api/v1/users/me", authMiddleware(handlers.Users.Me))

	// Pets of the authenticated owner
	r.PUT("/api/v1/pets", authMiddleware(handlers.Pets.Create))
	r.GET("/api/v1/pets", authMiddleware(handlers.Pets.List))
	r.GET("/api/v1/pets/{id}", authMiddleware(handlers.Pets.Get))
	r.DELETE("/api/v1/pets/{id}", authMiddleware(handlers.Pets.Delete))
	r.PATCH("/api/v1/pets/{id}/name", authMiddleware(handlers.Pets.Rename))
	r.POST("/api/v1/pets/{id}/feed", authMiddleware(handlers.Pets.Feed))
	r.POST("/api/v1/pets/{id}/play", authMiddleware(handlers.Pets.Play))
	r.POST("/api/v1/pets/{id}/sleep", authMiddleware(handlers.Pets.Sleep))

	admin := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return middleware.Chain(h, authMiddleware, middleware.RequireRole(domain.RoleAdmin))
	}
	r.GET("/api/v1/backoffice/pets", admin(handlers.Pets.AdminList))
	r.DELETE("/api/v1/backoffice/pets/{id}", admin(handlers.Pets.AdminDelete))

	return r
}
