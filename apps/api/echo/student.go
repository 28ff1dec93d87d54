package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tuition"
)

// studentApi serves the student portal. Every handler acts on the
// authenticated wallet; students cannot look up anyone else.
type studentApi struct {
	accessSvc  *access.Service
	studentSvc *student.Service
	tuitionSvc *tuition.Service
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	accessSvc *access.Service,
	studentSvc *student.Service,
	tuitionSvc *tuition.Service,
) {
	api := studentApi{
		accessSvc:  accessSvc,
		studentSvc: studentSvc,
		tuitionSvc: tuitionSvc,
	}

	sg := g.Group("/student", jwt, studentMiddleware())

	sg.GET("/me", api.retrieveProfile)
	sg.GET("/registration", api.retrieveRegistration)
	sg.GET("/attendance", api.retrieveAttendance)
	sg.GET("/tuition", api.retrieveTuition)
}

// Handlers

func (api *studentApi) retrieveProfile(ctx echo.Context) error {
	account, err := contextAccount(ctx)
	if err != nil {
		return err
	}

	profile, err := api.accessSvc.ProfileOf(ctx.Request().Context(), account)
	if err != nil {
		return errors.Wrap(err, "resolving account profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *studentApi) retrieveRegistration(ctx echo.Context) error {
	account, err := contextAccount(ctx)
	if err != nil {
		return err
	}

	info, err := api.studentSvc.InfoOf(ctx.Request().Context(), account)
	if err != nil {
		if errors.Cause(err) == student.ErrNotRegistered {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reading student record")
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *studentApi) retrieveAttendance(ctx echo.Context) error {
	account, err := contextAccount(ctx)
	if err != nil {
		return err
	}

	count, err := api.studentSvc.AttendanceOf(ctx.Request().Context(), account)
	if err != nil {
		return errors.Wrap(err, "reading attendance")
	}
	return ctx.JSON(http.StatusOK, AttendanceResponse{Address: account.Hex(), SessionsAttended: count})
}

func (api *studentApi) retrieveTuition(ctx echo.Context) error {
	account, err := contextAccount(ctx)
	if err != nil {
		return err
	}

	term, err := strconv.ParseInt(ctx.QueryParam("term"), 10, 64)
	if err != nil || term < 1 {
		return core.NewValidationError(nil, core.FieldError{Field: "term", Error: "must be a positive number"})
	}

	status, err := api.tuitionSvc.StatusOf(ctx.Request().Context(), account, term)
	if err != nil {
		return errors.Wrap(err, "reading tuition status")
	}
	return ctx.JSON(http.StatusOK, TuitionStatusResponse{Status: status, Deadline: status.Deadline()})
}
