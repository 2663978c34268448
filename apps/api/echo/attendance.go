package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/classes/:id/attendance", jwt, staffMiddleware())
	ag.GET("", api.matrix)
	ag.POST("", api.saveBatch)
}

// matrix returns the full roster x session grid; missing cells are
// provisioned as absent on the way.
func (api *attendanceApi) matrix(ctx echo.Context) error {
	m, err := api.svc.Matrix(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building attendance matrix")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *attendanceApi) saveBatch(ctx echo.Context) error {
	var data SaveAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveAttendanceRequest")
	}

	res, err := api.svc.SaveBatch(ctx.Request().Context(), ctx.Param("id"), data.Entries)
	if err != nil {
		return errors.Wrap(err, "saving attendance batch")
	}
	return ctx.JSON(http.StatusOK, res)
}

type SaveAttendanceRequest struct {
	Entries []attendance.StudentEntries `json:"entries"`
}
