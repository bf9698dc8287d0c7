package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// RequireAuth returns a middleware that verifies Firebase credentials: a
// session cookie when present, a bearer ID token otherwise. The admin API
// is JSON-only, so failures are 401 responses rather than redirects.
func RequireAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "auth is not configured")
			}

			var decodedToken *auth.Token
			var err error
			if cookie, cerr := c.Cookie("session"); cerr == nil && cookie.Value != "" {
				decodedToken, err = authClient.VerifySessionCookie(c.Request().Context(), cookie.Value)
			} else {
				header := c.Request().Header.Get(echo.HeaderAuthorization)
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok || token == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
				}
				decodedToken, err = authClient.VerifyIDToken(c.Request().Context(), token)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
			}

			// Set user info in context for downstream handlers
			c.Set("userUID", decodedToken.UID)
			if email, ok := decodedToken.Claims["email"].(string); ok {
				c.Set("userEmail", email)
			}

			return next(c)
		}
	}
}
