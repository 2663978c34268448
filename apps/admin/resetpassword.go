package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	p, err := cli.personRepo.GetPerson(ctx, identity.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		return err
	}
	if err = p.SetPassword(pwd); err != nil {
		return err
	}

	update := identity.Person{
		ID:           p.ID,
		PasswordHash: p.PasswordHash,
		UpdatedAt:    time.Now().UTC(),
	}
	_, err = cli.personRepo.UpdatePerson(ctx, update)
	return err
}
