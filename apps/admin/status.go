package main

import (
	"context"
	"fmt"
	"strings"
)

// status prints the operator's standing at a glance.
func (cli *commandLine) status() error {
	ctx := context.Background()

	account := cli.treasurySvc.Account()
	fmt.Printf("Account: %s\n", account.Hex())

	profile, err := cli.accessSvc.ProfileOf(ctx, account)
	if err != nil {
		return err
	}
	roles := profile.HeldRoleNames()
	if len(roles) == 0 {
		fmt.Println("Roles: none")
	} else {
		fmt.Printf("Roles: %s\n", strings.Join(roles, ", "))
	}

	paused, err := cli.treasurySvc.Paused(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Paused: %t\n", paused)

	balance, err := cli.treasurySvc.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Treasury balance: %s wei\n", balance)
	return nil
}
