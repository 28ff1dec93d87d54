package echoapi

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
	"github.com/trezcool/shule/core/tuition"
)

type teacherApi struct {
	studentSvc  *student.Service
	tuitionSvc  *tuition.Service
	treasurySvc *treasury.Service
	validate    *validator.Validate
}

func registerTeacherAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	studentSvc *student.Service,
	tuitionSvc *tuition.Service,
	treasurySvc *treasury.Service,
	validate *validator.Validate,
) {
	api := teacherApi{
		studentSvc:  studentSvc,
		tuitionSvc:  tuitionSvc,
		treasurySvc: treasurySvc,
		validate:    validate,
	}

	tg := g.Group("/teacher", jwt, teacherMiddleware())

	tg.GET("/registry", api.retrieveRegistry)
	tg.GET("/history", api.queryHistory)
	tg.GET("/students/:address", api.retrieveStudent)
	tg.GET("/students/:address/attendance", api.retrieveAttendance)

	tg.POST("/tuition/check", api.checkTuition)
	tg.GET("/tuition/checks", api.queryTuitionChecks)
	tg.GET("/tuition/fee/:term", api.retrieveFee)

	// tracked operations; each group root parks a new operation
	rg := tg.Group("/registrations")
	rg.POST("", api.beginRegister)
	registerOpRoutes(rg, studentSvc.RegisterController())

	bg := tg.Group("/registrations/batch")
	bg.POST("", api.beginBatchRegister)
	registerOpRoutes(bg, studentSvc.BatchController())

	ag := tg.Group("/attendance")
	ag.POST("", api.beginMarkAttendance)
	registerOpRoutes(ag, studentSvc.AttendanceController())

	pg := tg.Group("/reputation")
	pg.POST("", api.beginUpdateReputation)
	registerOpRoutes(pg, studentSvc.ReputationController())
}

// Handlers

func (api *teacherApi) retrieveRegistry(ctx echo.Context) error {
	paused, err := api.treasurySvc.Paused(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading pause flag")
	}
	return ctx.JSON(http.StatusOK, RegistryResponse{Paused: paused})
}

func (api *teacherApi) queryHistory(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.studentSvc.OpHistory())
}

func (api *teacherApi) retrieveStudent(ctx echo.Context) error {
	addr := ctx.Param("address")
	if !common.IsHexAddress(addr) {
		return errHttpNotFound
	}

	info, err := api.studentSvc.InfoOf(ctx.Request().Context(), common.HexToAddress(addr))
	if err != nil {
		if errors.Cause(err) == student.ErrNotRegistered {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reading student record")
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *teacherApi) retrieveAttendance(ctx echo.Context) error {
	addr := ctx.Param("address")
	if !common.IsHexAddress(addr) {
		return errHttpNotFound
	}

	account := common.HexToAddress(addr)
	count, err := api.studentSvc.AttendanceOf(ctx.Request().Context(), account)
	if err != nil {
		return errors.Wrap(err, "reading attendance")
	}
	return ctx.JSON(http.StatusOK, AttendanceResponse{Address: account.Hex(), SessionsAttended: count})
}

func (api *teacherApi) checkTuition(ctx echo.Context) error {
	var data tuition.Check
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Check")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	status, err := api.tuitionSvc.Check(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "checking tuition")
	}
	return ctx.JSON(http.StatusOK, TuitionStatusResponse{Status: status, Deadline: status.Deadline()})
}

func (api *teacherApi) queryTuitionChecks(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.tuitionSvc.CheckHistory())
}

func (api *teacherApi) retrieveFee(ctx echo.Context) error {
	term, err := strconv.ParseInt(ctx.Param("term"), 10, 64)
	if err != nil || term < 1 {
		return core.NewValidationError(nil, core.FieldError{Field: "term", Error: "must be a positive number"})
	}

	fee, err := api.tuitionSvc.Fee(ctx.Request().Context(), term)
	if err != nil {
		return errors.Wrap(err, "reading tuition fee")
	}
	return ctx.JSON(http.StatusOK, FeeResponse{Term: term, AmountWei: fee})
}

func (api *teacherApi) beginRegister(ctx echo.Context) error {
	var data student.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.studentSvc.BeginRegister(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.studentSvc.RegisterController().Snapshot())
}

func (api *teacherApi) beginBatchRegister(ctx echo.Context) error {
	var data student.Batch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Batch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.studentSvc.BeginBatchRegister(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.studentSvc.BatchController().Snapshot())
}

func (api *teacherApi) beginMarkAttendance(ctx echo.Context) error {
	var data student.Attendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.studentSvc.BeginMarkAttendance(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.studentSvc.AttendanceController().Snapshot())
}

func (api *teacherApi) beginUpdateReputation(ctx echo.Context) error {
	var data student.Reputation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reputation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.studentSvc.BeginUpdateReputation(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.studentSvc.ReputationController().Snapshot())
}

type (
	RegistryResponse struct {
		Paused bool `json:"paused"`
	}

	AttendanceResponse struct {
		Address          string   `json:"address"`
		SessionsAttended *big.Int `json:"sessions_attended"`
	}

	TuitionStatusResponse struct {
		tuition.Status
		Deadline tuition.Deadline `json:"deadline"`
	}

	FeeResponse struct {
		Term      int64    `json:"term"`
		AmountWei *big.Int `json:"amount_wei"`
	}
)
