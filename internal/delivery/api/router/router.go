// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"renthouse/internal/delivery/api/middleware"
	"renthouse/internal/delivery/api/router/handler"
	"renthouse/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AvatarUploadPath is relative to /api/v1/accounts. Uploads bypass the
// global body limit and are capped by avatarStorage.maxUploadSize instead.
const AvatarUploadPath = "/me/avatar/upload"

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/password/reset-token", r.authHandler.RequestResetToken)
		authGroup.POST("/password/reset", r.authHandler.ResetPassword)
	}

	// API v1 routes
	apiV1 := e.Group("/api/v1")
	apiV1.Use(r.authMiddleware.Authenticate) // All API v1 routes require authentication

	accountsGroup := apiV1.Group("/accounts")
	{
		accountsGroup.GET("", r.accountHandler.FindByNickName)
		accountsGroup.GET("/me", r.accountHandler.GetMe)
		accountsGroup.PUT("/me/profile", r.accountHandler.UpdateProfile)
		accountsGroup.PUT("/me/avatar", r.accountHandler.UpdateAvatar)
		accountsGroup.POST(AvatarUploadPath, r.accountHandler.UploadAvatar)
		accountsGroup.PUT("/me/password", r.accountHandler.ChangePassword)
		accountsGroup.GET("/:id", r.accountHandler.GetByID)
	}

	adminGroup := apiV1.Group("/admin")
	adminGroup.Use(r.authMiddleware.RequireAuthority(entity.AuthorityAdmin))
	{
		adminGroup.POST("/accounts", r.accountHandler.CreateAdmin)
	}
}
