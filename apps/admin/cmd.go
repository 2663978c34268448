package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *database.DB
	personRepo identity.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addperson -username USERNAME -role ROLE [-email EMAIL] [-name NAME] - create or update a person; the password is prompted next")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a person's password")
	fmt.Println("  migrate COMMAND [args] - run a database migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addPersonCmd := flag.NewFlagSet("addperson", flag.ExitOnError)
	addPersonUname := addPersonCmd.String("username", "", "The person's username.")
	addPersonEmail := addPersonCmd.String("email", "", "The person's email.")
	addPersonName := addPersonCmd.String("name", "", "The person's full name.")
	addPersonRole := addPersonCmd.String("role", "", "One of: director, teacher, student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The person's username or email. The password will be prompted next.")

	switch args[1] {
	case "addperson":
		if err := addPersonCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addPersonUname == "" || *addPersonRole == "" {
			addPersonCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addPersonCmd.Usage()
			return errHelp
		}
		return cli.addPerson(*addPersonUname, *addPersonEmail, *addPersonName, *addPersonRole, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
