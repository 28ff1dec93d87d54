package echoapi

import (
	"math/big"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/history"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
	"github.com/trezcool/shule/core/tuition"
)

type adminApi struct {
	accessSvc   *access.Service
	studentSvc  *student.Service
	tuitionSvc  *tuition.Service
	treasurySvc *treasury.Service
	validate    *validator.Validate
}

func registerAdminAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	accessSvc *access.Service,
	studentSvc *student.Service,
	tuitionSvc *tuition.Service,
	treasurySvc *treasury.Service,
	validate *validator.Validate,
) {
	api := adminApi{
		accessSvc:   accessSvc,
		studentSvc:  studentSvc,
		tuitionSvc:  tuitionSvc,
		treasurySvc: treasurySvc,
		validate:    validate,
	}

	ag := g.Group("/admin", jwt, adminMiddleware())

	ag.GET("/dashboard", api.retrieveDashboard)
	ag.GET("/treasury/balance", api.retrieveBalance)
	ag.GET("/treasury/history", api.queryTreasuryHistory)

	// tracked operations; each group root parks a new operation
	wg := ag.Group("/treasury/withdraw")
	wg.POST("", api.beginWithdraw)
	registerOpRoutes(wg, treasurySvc.WithdrawController())

	// pause and unpause drive the same switch, so they share a controller;
	// both route groups report the same status
	pg := ag.Group("/treasury/pause")
	pg.POST("", api.beginPause)
	registerOpRoutes(pg, treasurySvc.PauseController())

	ug := ag.Group("/treasury/unpause")
	ug.POST("", api.beginUnpause)
	registerOpRoutes(ug, treasurySvc.PauseController())
}

// Handlers

func (api *adminApi) retrieveDashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	account := api.treasurySvc.Account()
	profile, err := api.accessSvc.ProfileOf(rctx, account)
	if err != nil {
		return errors.Wrap(err, "resolving account profile")
	}
	paused, err := api.treasurySvc.Paused(rctx)
	if err != nil {
		return errors.Wrap(err, "reading pause flag")
	}
	balance, err := api.treasurySvc.Balance(rctx)
	if err != nil {
		return errors.Wrap(err, "reading treasury balance")
	}

	return ctx.JSON(http.StatusOK, DashboardResponse{
		Account:       account.Hex(),
		Profile:       profile,
		Paused:        paused,
		BalanceWei:    balance,
		RoleOps:       api.accessSvc.OpHistory(),
		StudentOps:    api.studentSvc.OpHistory(),
		TreasuryOps:   api.treasurySvc.OpHistory(),
		RoleChecks:    api.accessSvc.CheckHistory(),
		TuitionChecks: api.tuitionSvc.CheckHistory(),
	})
}

func (api *adminApi) retrieveBalance(ctx echo.Context) error {
	balance, err := api.treasurySvc.Balance(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading treasury balance")
	}
	return ctx.JSON(http.StatusOK, BalanceResponse{BalanceWei: balance})
}

func (api *adminApi) queryTreasuryHistory(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.treasurySvc.OpHistory())
}

func (api *adminApi) beginWithdraw(ctx echo.Context) error {
	var data treasury.Withdraw
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Withdraw")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.treasurySvc.BeginWithdraw(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.treasurySvc.WithdrawController().Snapshot())
}

func (api *adminApi) beginPause(ctx echo.Context) error {
	if err := api.treasurySvc.BeginPause(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.treasurySvc.PauseController().Snapshot())
}

func (api *adminApi) beginUnpause(ctx echo.Context) error {
	if err := api.treasurySvc.BeginUnpause(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.treasurySvc.PauseController().Snapshot())
}

type (
	DashboardResponse struct {
		Account       string          `json:"account"`
		Profile       access.Profile  `json:"profile"`
		Paused        bool            `json:"paused"`
		BalanceWei    *big.Int        `json:"balance_wei"`
		RoleOps       []history.Entry `json:"role_ops"`
		StudentOps    []history.Entry `json:"student_ops"`
		TreasuryOps   []history.Entry `json:"treasury_ops"`
		RoleChecks    []history.Entry `json:"role_checks"`
		TuitionChecks []history.Entry `json:"tuition_checks"`
	}

	BalanceResponse struct {
		BalanceWei *big.Int `json:"balance_wei"`
	}
)
