package echoapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
)

var errPersonNotFoundInCtx = errors.New("person object not found in echo.Context")

type personApi struct {
	svc *identity.Service
}

func registerPersonAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *identity.Service) {
	api := personApi{svc: svc}

	pg := g.Group("/persons")

	// un-authed endpoints
	pg.POST("/login", api.login)

	// authed endpoints
	ag := pg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/register", api.create, directorMiddleware())
	ag.GET("", api.query, staffMiddleware())
	ag.DELETE("", api.destroyMultiple, directorMiddleware())
	ag.GET("/roles", api.queryRoles, staffMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxPersonOrDirectorMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, directorMiddleware())
}

// Handlers

func (api *personApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		if errors.Cause(err) == identity.ErrNotFound {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *personApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *personApi) create(ctx echo.Context) error {
	var data identity.NewPerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPerson")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating person")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *personApi) query(ctx echo.Context) error {
	filter := new(identity.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []identity.Person{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	persons, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying persons")
	}
	if persons == nil {
		persons = []identity.Person{}
	}
	return ctx.JSON(http.StatusOK, persons)
}

func (api *personApi) retrieve(ctx echo.Context) error {
	p, ok := ctx.Get("object").(identity.Person)
	if !ok {
		return errors.Wrap(errPersonNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *personApi) update(ctx echo.Context) error {
	p, ok := ctx.Get("object").(identity.Person)
	if !ok {
		return errors.Wrap(errPersonNotFoundInCtx, "retrieving object from context")
	}

	var data identity.UpdatePerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePerson")
	}

	ctxPerson, err := getContextPerson(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}
	if !ctxPerson.IsDirector() {
		// `IsActive`, `Role`, `Username` and `Email` can only be changed by a director
		if data.IsActive != nil || data.Role != "" || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	if err := data.Validate(p, api.svc); err != nil {
		return err
	}

	p, err = api.svc.Update(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating person")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *personApi) destroy(ctx echo.Context) error {
	p, ok := ctx.Get("object").(identity.Person)
	if !ok {
		return errors.Wrap(errPersonNotFoundInCtx, "retrieving object from context")
	}

	// ctxPerson cannot delete themselves
	ctxPerson, err := getContextPerson(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}
	if p.ID == ctxPerson.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "deleting person")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *personApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxPerson cannot delete themselves
	ctxPerson, err := getContextPerson(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context person")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, ctxPerson.ID); i < len(query.IDs) {
		if match := query.IDs[i]; ctxPerson.ID == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting persons")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *personApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, identity.Roles)
}

func ctxPersonOrDirectorMiddleware(svc *identity.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxPerson, err := getContextPerson(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context person")
			}

			if ctx.Param("id") == ctxPerson.ID || ctxPerson.IsDirector() {
				if p, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", p)
					return next(ctx)
				} else if errors.Cause(err) != identity.ErrNotFound {
					return errors.Wrap(err, "finding person by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}
