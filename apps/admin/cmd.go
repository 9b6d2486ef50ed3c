package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/vince-duran/TPLearn-sub006/core"
	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sql.DB
	conf       *core.Config
	billingSvc *billing.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run a database migration command (up, down, status, ...)")
	fmt.Println("  sweep [-date YYYY-MM-DD] - pause active enrollments with an overdue installment")
	fmt.Println("  minttoken -validator ID [-name NAME] [-admin] - mint a JWT for a payment validator")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sweepCmd := flag.NewFlagSet("sweep", flag.ExitOnError)
	sweepDate := sweepCmd.String("date", "", "Sweep as of this UTC date (YYYY-MM-DD). Defaults to today.")

	mintTokenCmd := flag.NewFlagSet("minttoken", flag.ExitOnError)
	mintTokenValidator := mintTokenCmd.String("validator", "", "The validator's ID. Becomes the token subject.")
	mintTokenName := mintTokenCmd.String("name", "", "The validator's display name.")
	mintTokenAdmin := mintTokenCmd.Bool("admin", false, "Grant admin access.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.sweep(*sweepDate)
	case "minttoken":
		if err := mintTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mintTokenValidator == "" {
			mintTokenCmd.Usage()
			return errHelp
		}
		return cli.mintToken(*mintTokenValidator, *mintTokenName, *mintTokenAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}
