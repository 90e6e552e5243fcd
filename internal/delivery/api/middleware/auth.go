package middleware

import (
	"log/slog"
	"strings"

	"renthouse/internal/delivery/api/response"
	deliverycontext "renthouse/internal/delivery/context"
	"renthouse/internal/domain/entity"
	"renthouse/internal/domain/service"
	"renthouse/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const bearerPrefix = "Bearer "

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenService service.TokenService
	Logger       *slog.Logger
}

// AuthMiddleware turns a bearer access token into the request's caller.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: params.TokenService, logger: params.Logger}
}

// Authenticate validates the access token and stores the caller on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return response.Unauthorized(c, "MISSING_TOKEN", "Authorization header is missing")
		}

		tokenString, found := strings.CutPrefix(authHeader, bearerPrefix)
		if !found || strings.TrimSpace(tokenString) == "" {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid token format, must be Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Debug("Rejected access token", slog.Any("error", err))

			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		}

		deliverycontext.SetCaller(c, usecase.Caller{
			AccountID:   claims.AccountID,
			Authorities: entity.AuthoritiesFromStrings(claims.Authorities),
		})

		return next(c)
	}
}

// RequireAuthority rejects callers lacking the authority.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireAuthority(authority entity.Authority) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := deliverycontext.GetCaller(c)
			if !ok {
				return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
			}

			if !caller.HasAuthority(authority) {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: require '"+string(authority)+"'")
			}

			return next(c)
		}
	}
}
