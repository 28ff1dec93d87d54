package main

import (
	"context"

	"github.com/trezcool/shule/core/student"
)

func (cli *commandLine) register(reg student.Registration, yes bool) error {
	ctx := context.Background()

	if err := reg.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.studentSvc.BeginRegister(ctx, reg); err != nil {
		return err
	}
	return cli.confirmOp(ctx, cli.studentSvc.RegisterController(), yes)
}
