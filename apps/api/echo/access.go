package echoapi

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/access"
)

type rolesApi struct {
	svc      *access.Service
	validate *validator.Validate
}

func registerRolesAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *access.Service,
	validate *validator.Validate,
) {
	api := rolesApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/roles", jwt)

	rg.GET("", api.queryRoles)
	rg.POST("/check", api.check)
	rg.GET("/checks", api.queryChecks, adminMiddleware())
	rg.GET("/history", api.queryHistory, adminMiddleware())
	rg.GET("/profile/:address", api.retrieveProfile, adminMiddleware())

	// tracked role operations; each group root parks a new operation
	gg := rg.Group("/grant", adminMiddleware())
	gg.POST("", api.beginGrant)
	registerOpRoutes(gg, svc.GrantController())

	vg := rg.Group("/revoke", adminMiddleware())
	vg.POST("", api.beginRevoke)
	registerOpRoutes(vg, svc.RevokeController())

	ng := rg.Group("/renounce", adminMiddleware())
	ng.POST("", api.beginRenounce)
	registerOpRoutes(ng, svc.RenounceController())
}

// Handlers

func (api *rolesApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, access.AllRoles)
}

func (api *rolesApi) check(ctx echo.Context) error {
	var data access.CheckRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Check(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "checking role")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *rolesApi) queryChecks(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.CheckHistory())
}

func (api *rolesApi) queryHistory(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.OpHistory())
}

func (api *rolesApi) retrieveProfile(ctx echo.Context) error {
	addr := ctx.Param("address")
	if !common.IsHexAddress(addr) {
		return errHttpNotFound
	}

	profile, err := api.svc.ProfileOf(ctx.Request().Context(), common.HexToAddress(addr))
	if err != nil {
		return errors.Wrap(err, "resolving account profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *rolesApi) beginGrant(ctx echo.Context) error {
	var data access.GrantRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GrantRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.BeginGrant(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.GrantController().Snapshot())
}

func (api *rolesApi) beginRevoke(ctx echo.Context) error {
	var data access.RevokeRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RevokeRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.BeginRevoke(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.RevokeController().Snapshot())
}

func (api *rolesApi) beginRenounce(ctx echo.Context) error {
	var data access.RenounceRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RenounceRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.BeginRenounce(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.RenounceController().Snapshot())
}
