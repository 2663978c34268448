package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// directorMiddleware allows academic directors only.
func directorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsDirector {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware allows directors and teachers.
func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsDirector || claims.IsTeacher {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
