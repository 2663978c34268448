package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/school"
)

type schoolApi struct {
	svc *school.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service) {
	api := schoolApi{svc: svc}

	// periods
	pg := g.Group("/periods", jwt)
	pg.POST("", api.createPeriod, directorMiddleware())
	pg.GET("", api.queryPeriods)
	pg.GET("/:id", api.retrievePeriod)
	pg.PUT("/:id", api.updatePeriod, directorMiddleware())

	// levels
	lg := g.Group("/levels", jwt)
	lg.POST("", api.createLevel, directorMiddleware())
	lg.GET("", api.queryLevels)

	// classes
	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, directorMiddleware())
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, directorMiddleware())

	// session catalog
	cg.POST("/:id/sessions", api.addSession, staffMiddleware())
	cg.GET("/:id/sessions", api.querySessions)
	cg.DELETE("/:id/sessions/:sessionID", api.removeSession, staffMiddleware())

	// roster
	cg.GET("/:id/roster", api.members, staffMiddleware())
	cg.POST("/:id/roster", api.enroll, directorMiddleware())
	cg.DELETE("/:id/roster/:studentID", api.unenroll, directorMiddleware())
}

// Periods

func (api *schoolApi) createPeriod(ctx echo.Context) error {
	var data school.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.CreatePeriod(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating period")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *schoolApi) queryPeriods(ctx echo.Context) error {
	activeOnly := ctx.QueryParam("active") == "true"
	periods, err := api.svc.QueryPeriods(ctx.Request().Context(), activeOnly)
	if err != nil {
		return errors.Wrap(err, "querying periods")
	}
	if periods == nil {
		periods = []school.AcademicPeriod{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *schoolApi) retrievePeriod(ctx echo.Context) error {
	p, err := api.svc.GetPeriod(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding period")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *schoolApi) updatePeriod(ctx echo.Context) error {
	p, err := api.svc.GetPeriod(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding period")
	}

	var data school.NewPeriod
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	p.Name = data.Name
	p.Year = data.Year
	p.StartDate = core.NormalizeDate(data.StartDate)
	p.EndDate = core.NormalizeDate(data.EndDate)
	p.IsActive = data.IsActive

	p, err = api.svc.UpdatePeriod(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "updating period")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Levels

func (api *schoolApi) createLevel(ctx echo.Context) error {
	var data school.NewLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevel")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	l, err := api.svc.CreateLevel(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating level")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *schoolApi) queryLevels(ctx echo.Context) error {
	levels, err := api.svc.QueryLevels(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying levels")
	}
	if levels == nil {
		levels = []school.Level{}
	}
	return ctx.JSON(http.StatusOK, levels)
}

// Classes

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	filter := new(school.ClassFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.ClassSection{})
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.ClassSection{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	c, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}

	c, err := api.svc.UpdateClass(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, c)
}

// Session catalog

func (api *schoolApi) addSession(ctx echo.Context) error {
	data := school.NewSession{ClassID: ctx.Param("id")}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	data.ClassID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	s, err := api.svc.AddSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *schoolApi) querySessions(ctx echo.Context) error {
	sessions, err := api.svc.SessionsFor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []school.ScheduledSession{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *schoolApi) removeSession(ctx echo.Context) error {
	if err := api.svc.RemoveSession(ctx.Request().Context(), ctx.Param("sessionID")); err != nil {
		return errors.Wrap(err, "removing session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Roster

func (api *schoolApi) members(ctx echo.Context) error {
	members, err := api.svc.Members(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []identity.Person{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *schoolApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), data.StudentID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *schoolApi) unenroll(ctx echo.Context) error {
	if err := api.svc.Unenroll(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (er *EnrollRequest) Validate() error {
	return core.Validate.Struct(er)
}
