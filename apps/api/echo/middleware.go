package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// roleMiddleware lets through principals holding the given role.
func roleMiddleware(validate *validator.Validate, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx, validate)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.Role == role {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
