package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt)
	rg.GET("/classes/:id", api.classReport, staffMiddleware())
	rg.GET("/classes/:id/attendance", api.attendanceReport, staffMiddleware())
	rg.GET("/dashboard", api.dashboard, directorMiddleware())
	rg.GET("/students/:id/report-card", api.reportCard)
	rg.GET("/teachers/:id/roster", api.teacherRoster, staffMiddleware())
}

func (api *reportApi) classReport(ctx echo.Context) error {
	rep, err := api.svc.ClassReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) attendanceReport(ctx echo.Context) error {
	rep, err := api.svc.AttendanceReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	rep, err := api.svc.PeriodDashboard(ctx.Request().Context(), ctx.QueryParam("period"))
	if err != nil {
		return errors.Wrap(err, "building period dashboard")
	}
	return ctx.JSON(http.StatusOK, rep)
}

// reportCard serves a student's own card; staff may request any student's.
func (api *reportApi) reportCard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	studentID := ctx.Param("id")
	if !(claims.IsDirector || claims.IsTeacher || claims.Subject == studentID) {
		return errHttpForbidden
	}

	card, err := api.svc.ReportCard(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, card)
}

func (api *reportApi) teacherRoster(ctx echo.Context) error {
	roster, err := api.svc.TeacherRoster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building teacher roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}
