package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core/grading"
)

type gradeApi struct {
	svc *grading.Service
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grading.Service) {
	api := gradeApi{svc: svc}

	gg := g.Group("/classes/:id/grades", jwt)
	gg.GET("", api.classRecords, staffMiddleware())
	gg.GET("/:studentID", api.retrieve, staffMiddleware())
	gg.PUT("/:studentID", api.upsertScores, staffMiddleware())
	gg.GET("/:studentID/status", api.approvalStatus, staffMiddleware())

	g.GET("/grading/config", api.config, jwt, staffMiddleware())
}

func (api *gradeApi) config(ctx echo.Context) error {
	cfg := api.svc.Config()
	return ctx.JSON(http.StatusOK, GradingConfigResponse{
		Components:          cfg.Components,
		GradeThreshold:      cfg.GradeThreshold,
		AttendanceThreshold: cfg.AttendanceThreshold,
	})
}

func (api *gradeApi) classRecords(ctx echo.Context) error {
	recs, err := api.svc.ClassRecords(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying grade records")
	}
	if recs == nil {
		recs = []grading.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetRecord(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentID"))
	if err != nil {
		return errors.Wrap(err, "finding grade record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) upsertScores(ctx echo.Context) error {
	var data UpsertScoresRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertScoresRequest")
	}

	rec, err := api.svc.UpsertComponents(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentID"), data.Scores)
	if err != nil {
		return errors.Wrap(err, "upserting scores")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) approvalStatus(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	classID, studentID := ctx.Param("id"), ctx.Param("studentID")

	status, err := api.svc.ApprovalStatus(reqCtx, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "computing approval status")
	}
	rec, err := api.svc.GetRecord(reqCtx, classID, studentID)
	if err != nil && errors.Cause(err) != grading.ErrNotFound {
		return errors.Wrap(err, "finding grade record")
	}
	pct, err := api.svc.AttendancePct(reqCtx, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "computing attendance")
	}

	return ctx.JSON(http.StatusOK, ApprovalStatusResponse{
		Status:        status,
		Average:       api.svc.Average(rec),
		AttendancePct: pct,
	})
}

type (
	UpsertScoresRequest struct {
		Scores grading.Scores `json:"scores"`
	}

	ApprovalStatusResponse struct {
		Status        string          `json:"status"`
		Average       decimal.Decimal `json:"average"`
		AttendancePct decimal.Decimal `json:"attendance_pct"`
	}

	GradingConfigResponse struct {
		Components          []string        `json:"components"`
		GradeThreshold      decimal.Decimal `json:"grade_threshold"`
		AttendanceThreshold decimal.Decimal `json:"attendance_threshold"`
	}
)
