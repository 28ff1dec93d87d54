package main

import (
	"context"

	"github.com/trezcool/shule/core/treasury"
)

func (cli *commandLine) withdraw(amount, to string, yes bool) error {
	ctx := context.Background()

	data := treasury.Withdraw{Amount: amount, To: to}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.treasurySvc.BeginWithdraw(ctx, data); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.treasurySvc.WithdrawController(), yes)
}

func (cli *commandLine) pause(yes bool) error {
	ctx := context.Background()

	if err := cli.treasurySvc.BeginPause(ctx); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.treasurySvc.PauseController(), yes)
}

func (cli *commandLine) unpause(yes bool) error {
	ctx := context.Background()

	if err := cli.treasurySvc.BeginUnpause(ctx); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.treasurySvc.PauseController(), yes)
}
