package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
)

// addPerson updates or creates an identity.Person.
func (cli *commandLine) addPerson(uname, email, name, role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	switch role {
	case identity.RoleDirector, identity.RoleTeacher, identity.RoleStudent:
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	now := time.Now().UTC()
	p, err := cli.personRepo.GetPerson(ctx, identity.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		if errors.Cause(err) != identity.ErrNotFound {
			return err
		}
		p = identity.Person{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name != "" {
		p.Name = name
	}
	p.Role = role
	isActive := true
	p.IsActive = &isActive
	p.UpdatedAt = now
	if err = p.SetPassword(pwd); err != nil {
		return err
	}

	if p.ID == "" {
		_, err = cli.personRepo.CreatePerson(ctx, p)
	} else {
		_, err = cli.personRepo.UpdatePerson(ctx, p)
	}
	return err
}
