package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/operation"
)

// opApi drives one tracked-operation controller over HTTP. Feature APIs
// park an operation by POSTing to their own group root; these routes take
// it from there.
type opApi struct {
	ctl *operation.Controller
}

func registerOpRoutes(g *echo.Group, ctl *operation.Controller) {
	api := opApi{ctl: ctl}

	g.GET("/status", api.status)
	g.POST("/confirm", api.confirm)
	g.POST("/cancel", api.cancel)
	g.POST("/edit", api.edit)
	g.POST("/retry", api.retry)
	g.POST("/reset", api.reset)
	g.POST("/dismiss-banner", api.dismissBanner)
}

// Handlers

func (api *opApi) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}

func (api *opApi) confirm(ctx echo.Context) error {
	if _, err := api.ctl.Confirm(ctx.Request().Context()); err != nil {
		if isOpStateError(err) {
			return err
		}
		// a settled failure is still a 200; the outcome rides in the snapshot
	}
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}

func (api *opApi) cancel(ctx echo.Context) error {
	if err := api.ctl.Cancel(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}

func (api *opApi) edit(ctx echo.Context) error {
	if err := api.ctl.Edit(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}

func (api *opApi) retry(ctx echo.Context) error {
	if err := api.ctl.Retry(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}

func (api *opApi) reset(ctx echo.Context) error {
	if err := api.ctl.Reset(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}

func (api *opApi) dismissBanner(ctx echo.Context) error {
	api.ctl.DismissBanner()
	return ctx.JSON(http.StatusOK, api.ctl.Snapshot())
}
