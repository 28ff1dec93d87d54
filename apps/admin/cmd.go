package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"golang.org/x/term"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/operation"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf        *core.Config
	validate    *validator.Validate
	accessSvc   *access.Service
	studentSvc  *student.Service
	treasurySvc *treasury.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  grantrole -role ROLE -address ADDRESS [-yes]    - grant a contract role to an account")
	fmt.Println("  revokerole -role ROLE -address ADDRESS [-yes]   - revoke a contract role from an account")
	fmt.Println("  renouncerole -role ROLE [-yes]                  - give up one of the signing account's own roles")
	fmt.Println("  checkrole -role ROLE -address ADDRESS           - check whether an account holds a role")
	fmt.Println("  register -address ADDRESS -name NAME -program N -term N [-email EMAIL] [-yes]")
	fmt.Println("                                                  - register a student on chain")
	fmt.Println("  withdraw -amount WEI -to ADDRESS [-yes]         - emergency-withdraw treasury funds")
	fmt.Println("  pause [-yes]                                    - pause the contract")
	fmt.Println("  unpause [-yes]                                  - unpause the contract")
	fmt.Println("  status                                          - print account, roles, pause flag and treasury balance")
	fmt.Println()
	fmt.Println("Write commands precheck and stop; add -yes to submit the transaction.")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	grantCmd := flag.NewFlagSet("grantrole", flag.ExitOnError)
	grantRole := grantCmd.String("role", "", "The role name, e.g. TEACHER_ROLE.")
	grantAddr := grantCmd.String("address", "", "The account to grant the role to.")
	grantYes := grantCmd.Bool("yes", false, "Submit the transaction.")

	revokeCmd := flag.NewFlagSet("revokerole", flag.ExitOnError)
	revokeRole := revokeCmd.String("role", "", "The role name, e.g. TEACHER_ROLE.")
	revokeAddr := revokeCmd.String("address", "", "The account to revoke the role from.")
	revokeYes := revokeCmd.Bool("yes", false, "Submit the transaction.")

	renounceCmd := flag.NewFlagSet("renouncerole", flag.ExitOnError)
	renounceRole := renounceCmd.String("role", "", "The role name to give up.")
	renounceYes := renounceCmd.Bool("yes", false, "Submit the transaction.")

	checkCmd := flag.NewFlagSet("checkrole", flag.ExitOnError)
	checkRole := checkCmd.String("role", "", "The role name, e.g. STUDENT_ROLE.")
	checkAddr := checkCmd.String("address", "", "The account to check.")

	registerCmd := flag.NewFlagSet("register", flag.ExitOnError)
	registerAddr := registerCmd.String("address", "", "The student's wallet address.")
	registerName := registerCmd.String("name", "", "The student's full name.")
	registerEmail := registerCmd.String("email", "", "The student's email; a welcome email is sent when set.")
	registerProgram := registerCmd.Int64("program", 0, "The program id.")
	registerTerm := registerCmd.Int64("term", 0, "The term number, starting at 1.")
	registerYes := registerCmd.Bool("yes", false, "Submit the transaction.")

	withdrawCmd := flag.NewFlagSet("withdraw", flag.ExitOnError)
	withdrawAmount := withdrawCmd.String("amount", "", "The amount in wei.")
	withdrawTo := withdrawCmd.String("to", "", "The recipient address.")
	withdrawYes := withdrawCmd.Bool("yes", false, "Submit the transaction.")

	pauseCmd := flag.NewFlagSet("pause", flag.ExitOnError)
	pauseYes := pauseCmd.Bool("yes", false, "Submit the transaction.")

	unpauseCmd := flag.NewFlagSet("unpause", flag.ExitOnError)
	unpauseYes := unpauseCmd.Bool("yes", false, "Submit the transaction.")

	switch args[1] {
	case "grantrole":
		if err := grantCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantRole == "" || *grantAddr == "" {
			grantCmd.Usage()
			return errHelp
		}
		return cli.grantRole(*grantRole, *grantAddr, *grantYes)
	case "revokerole":
		if err := revokeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *revokeRole == "" || *revokeAddr == "" {
			revokeCmd.Usage()
			return errHelp
		}
		return cli.revokeRole(*revokeRole, *revokeAddr, *revokeYes)
	case "renouncerole":
		if err := renounceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *renounceRole == "" {
			renounceCmd.Usage()
			return errHelp
		}
		return cli.renounceRole(*renounceRole, *renounceYes)
	case "checkrole":
		if err := checkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *checkRole == "" || *checkAddr == "" {
			checkCmd.Usage()
			return errHelp
		}
		return cli.checkRole(*checkRole, *checkAddr)
	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *registerAddr == "" || *registerName == "" || *registerProgram == 0 || *registerTerm == 0 {
			registerCmd.Usage()
			return errHelp
		}
		reg := student.Registration{
			Address:   *registerAddr,
			FullName:  *registerName,
			Email:     *registerEmail,
			ProgramID: *registerProgram,
			Term:      *registerTerm,
		}
		return cli.register(reg, *registerYes)
	case "withdraw":
		if err := withdrawCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *withdrawAmount == "" || *withdrawTo == "" {
			withdrawCmd.Usage()
			return errHelp
		}
		return cli.withdraw(*withdrawAmount, *withdrawTo, *withdrawYes)
	case "pause":
		if err := pauseCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.pause(*pauseYes)
	case "unpause":
		if err := unpauseCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.unpause(*unpauseYes)
	case "status":
		return cli.status()
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirmOp finishes a parked operation: without -yes it is cancelled after
// reporting the prechecked summary, with -yes it is submitted and awaited.
func (cli *commandLine) confirmOp(ctx context.Context, ctl *operation.Controller, yes bool) error {
	snap := ctl.Snapshot()
	fmt.Printf("Prechecks passed: %s\n", snap.Label)
	if !yes {
		_ = ctl.Cancel()
		fmt.Println("Re-run with -yes to submit.")
		return nil
	}

	fmt.Println("Submitting...")
	entry, err := ctl.Confirm(ctx)
	if entry.TxHash != "" {
		fmt.Printf("tx: %s\n", entry.TxHash)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Succeeded: %s\n", entry.Label)
	return nil
}
