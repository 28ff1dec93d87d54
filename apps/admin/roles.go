package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/access"
)

func (cli *commandLine) grantRole(roleName, addr string, yes bool) error {
	ctx := context.Background()

	data := access.GrantRole{Role: roleName, Address: addr}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.accessSvc.BeginGrant(ctx, data); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.accessSvc.GrantController(), yes)
}

func (cli *commandLine) revokeRole(roleName, addr string, yes bool) error {
	ctx := context.Background()

	data := access.RevokeRole{Role: roleName, Address: addr}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.accessSvc.BeginRevoke(ctx, data); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.accessSvc.RevokeController(), yes)
}

func (cli *commandLine) renounceRole(roleName string, yes bool) error {
	ctx := context.Background()

	data := access.RenounceRole{Role: roleName}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.accessSvc.BeginRenounce(ctx, data); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.accessSvc.RenounceController(), yes)
}

func (cli *commandLine) checkRole(roleName, addr string) error {
	ctx := context.Background()

	data := access.CheckRole{Role: roleName, Address: addr}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}

	res, err := cli.accessSvc.Check(ctx, data)
	if err != nil {
		return err
	}

	verdict := "does not hold"
	if res.Held {
		verdict = "holds"
	}
	fmt.Printf("%s %s %s\n", res.Address, verdict, res.Role)
	return nil
}
