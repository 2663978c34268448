package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound       = errors.New("person not found")
	ErrUsernameExists = errors.New("a person with this username already exists")
	ErrEmailExists    = errors.New("a person with this email already exists")
)

type (
	Repository interface {
		CheckUniqueness(ctx context.Context, username, email string, excluded []Person, exec ...core.DBExecutor) error
		CreatePerson(ctx context.Context, p Person, exec ...core.DBExecutor) (Person, error)
		GetPerson(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Person, error)
		// QueryPersons applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Name, Username or Email.
		QueryPersons(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Person, error)
		QueryPersonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Person, error)
		UpdatePerson(ctx context.Context, p Person, exec ...core.DBExecutor) (Person, error)
		DeletePersonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{conf: conf, repo: repo, mailSvc: mailSvc}
}

func (svc *Service) CheckUniqueness(uname, email string, excluded ...Person) error {
	err := svc.repo.CheckUniqueness(context.Background(), uname, email, excluded)
	if err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, np NewPerson) (Person, error) {
	now := time.Now().UTC()
	isActive := true
	p := Person{
		Name:      np.Name,
		Username:  np.Username,
		Email:     np.Email,
		Role:      np.Role,
		Phone:     np.Phone,
		BirthDate: np.BirthDate,
		IsActive:  &isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.SetPassword(np.Password); err != nil {
		return Person{}, err
	}

	p, err := svc.repo.CreatePerson(ctx, p)
	if err != nil {
		return Person{}, err
	}
	svc.sendWelcomeEmail(p)
	return p, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Person, error) {
	return svc.repo.GetPerson(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (Person, error) {
	return svc.repo.GetPerson(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Person, error) {
	return svc.repo.GetPerson(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Person, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryPersons(ctx, filter, ordering)
}

func (svc *Service) QueryByIDs(ctx context.Context, ids []string) ([]Person, error) {
	if len(ids) == 0 {
		return []Person{}, nil
	}
	return svc.repo.QueryPersonsByID(ctx, ids)
}

func (svc *Service) Update(ctx context.Context, id string, up UpdatePerson) (Person, error) {
	p := Person{
		ID:        id,
		Name:      up.Name,
		Username:  up.Username,
		Email:     up.Email,
		Role:      up.Role,
		Phone:     up.Phone,
		BirthDate: up.BirthDate,
		IsActive:  up.IsActive,
		UpdatedAt: time.Now().UTC(),
	}
	if up.Password != "" {
		if err := p.SetPassword(up.Password); err != nil {
			return Person{}, err
		}
	}
	return svc.repo.UpdatePerson(ctx, p)
}

func (svc *Service) SetLastLogin(ctx context.Context, p Person) error {
	p.LastLogin = time.Now().UTC()
	_, err := svc.repo.UpdatePerson(ctx, p)
	return err
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeletePersonsByID(ctx, ids)
	return err
}

func (svc *Service) sendWelcomeEmail(p Person) {
	if svc.mailSvc == nil || p.Email == "" {
		return
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject: "Welcome to " + svc.conf.AppName,
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour %s account has been created. Sign in with your username %q at %s.\n",
			p.Name, svc.conf.AppName, p.Username, svc.conf.FrontendBaseURL,
		),
	}
	svc.mailSvc.SendMessages(msg)
}
