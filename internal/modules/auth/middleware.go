package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/syonosuke743/portfolio/internal/models"
)

// Middleware validates the bearer access token and stores its subject under
// "userID" in the echo context. Refresh tokens are rejected.
func Middleware(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return parseToken(auth, key, TokenTypeAccess)
		},
		SuccessHandler: func(c echo.Context) {
			if claims, ok := c.Get("user").(*Claims); ok {
				c.Set("userID", claims.Subject)
				c.Set("userEmail", claims.Email)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid or missing token"})
		},
	})
}
