// Package router wires handlers and middleware onto the Echo instance. Route
// registration is split by surface: health, auth, and the protected API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/reading-practice/internal/handler"
	appmw "github.com/iliyamo/reading-practice/internal/middleware"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
)

// Handlers bundles everything route registration needs.
type Handlers struct {
	Auth       *handler.AuthHandler
	Join       *handler.JoinHandler
	Users      *handler.UserHandler
	Classes    *handler.ClassHandler
	Stories    *handler.StoryHandler
	Assigns    *handler.AssignmentHandler
	Recordings *handler.RecordingHandler
	Sessions   *session.Store

	// CacheVisualPasswords, when non-nil, caches the public picklist.
	CacheVisualPasswords echo.MiddlewareFunc
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerAuth(e, h)
	registerAPI(e, h)
}

// registerAuth mounts the unauthenticated entry points: teacher sign-up and
// sign-in, the student join flow, password reset, and the visual password
// picklist the join screen renders.
func registerAuth(e *echo.Echo, h Handlers) {
	g := e.Group("/api/auth")
	g.POST("/sign-up", h.Auth.SignUp)
	g.POST("/sign-in", h.Auth.SignIn)
	g.POST("/join", h.Join.Join)
	g.POST("/forgot-password", h.Auth.ForgotPassword)
	g.POST("/reset-password", h.Auth.ResetPassword)

	vps := e.Group("/api/visual-passwords")
	if h.CacheVisualPasswords != nil {
		vps.Use(h.CacheVisualPasswords)
	}
	vps.GET("", h.Join.ListVisualPasswords)
}

// registerAPI mounts everything behind SessionAuth. Fine-grained permissions
// live in the authz gate inside each handler; the only route-level role check
// is the admin-only user management group.
func registerAPI(e *echo.Echo, h Handlers) {
	api := e.Group("/api")
	api.Use(appmw.SessionAuth(h.Sessions))

	api.POST("/auth/sign-out", h.Auth.SignOut)
	api.GET("/auth/session", h.Auth.Session)

	users := api.Group("/users")
	users.Use(appmw.RequireRole(repository.RoleAdmin))
	users.GET("", h.Users.List)
	users.POST("", h.Users.Create)
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	classes := api.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.GET("/:id/students", h.Classes.Students)
	classes.PUT("/:id", h.Classes.Update)
	classes.DELETE("/:id", h.Classes.Delete)

	stories := api.Group("/stories")
	stories.GET("", h.Stories.List)
	stories.POST("", h.Stories.Create)
	stories.GET("/:id", h.Stories.Get)
	stories.PUT("/:id", h.Stories.Update)
	stories.DELETE("/:id", h.Stories.Delete)

	assignments := api.Group("/assignments")
	assignments.GET("", h.Assigns.List)
	assignments.POST("", h.Assigns.Create)
	assignments.GET("/:id", h.Assigns.Get)
	assignments.PUT("/:id", h.Assigns.Update)
	assignments.DELETE("/:id", h.Assigns.Delete)

	recordings := api.Group("/recordings")
	recordings.GET("", h.Recordings.List)
	recordings.POST("", h.Recordings.Create)
	recordings.GET("/:id", h.Recordings.Get)
	recordings.GET("/:id/audio", h.Recordings.Audio)
	recordings.DELETE("/:id", h.Recordings.Delete)
}
