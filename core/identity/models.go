package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Roles
const (
	RoleDirector = "director"
	RoleTeacher  = "teacher"
	RoleStudent  = "student"
)

var Roles = []Role{
	{Name: "Academic Director", Value: RoleDirector},
	{Name: "Teacher", Value: RoleTeacher},
	{Name: "Student", Value: RoleStudent},
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Person struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	BirthDate    time.Time `json:"birth_date,omitempty"`
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (p *Person) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Person) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Person) IsDirector() bool { return p.Role == RoleDirector }
func (p *Person) IsTeacher() bool  { return p.Role == RoleTeacher }
func (p *Person) IsStudent() bool  { return p.Role == RoleStudent }

// Age in full years at now; -1 when the birth date is unknown.
func (p *Person) Age(now time.Time) int {
	if p.BirthDate.IsZero() {
		return -1
	}
	age := now.Year() - p.BirthDate.Year()
	if now.Month() < p.BirthDate.Month() ||
		(now.Month() == p.BirthDate.Month() && now.Day() < p.BirthDate.Day()) {
		age--
	}
	return age
}

// NewPerson contains information needed to create a new Person.
type NewPerson struct {
	Name            string    `json:"name" validate:"required"`
	Username        string    `json:"username" validate:"required,min=3,alphanum_"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Role            string    `json:"role" validate:"required,oneof=director teacher student"`
	Phone           string    `json:"phone"`
	BirthDate       time.Time `json:"birth_date"`
	Password        string    `json:"password" validate:"required,min=6"`
	PasswordConfirm string    `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (np *NewPerson) Validate(svc *Service) error {
	np.Name = core.CleanString(np.Name)
	np.Username = core.CleanString(np.Username, true /* lower */)
	np.Email = core.CleanString(np.Email, true /* lower */)

	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	return svc.CheckUniqueness(np.Username, np.Email)
}

// UpdatePerson defines what information may be provided to modify an existing Person.
type UpdatePerson struct {
	Name            string    `json:"name"`
	Username        string    `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Role            string    `json:"role" validate:"omitempty,oneof=director teacher student"`
	Phone           string    `json:"phone"`
	BirthDate       time.Time `json:"birth_date"`
	IsActive        *bool     `json:"is_active"`
	Password        string    `json:"password" validate:"omitempty,min=6"`
	PasswordConfirm string    `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (up *UpdatePerson) Validate(orig Person, svc *Service) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if uname := core.CleanString(up.Username, true /* lower */); uname != "" {
		up.Username = uname
	} else {
		up.Username = orig.Username
	}
	if email := core.CleanString(up.Email, true /* lower */); email != "" {
		up.Email = email
	} else {
		up.Email = orig.Email
	}
	if up.Role == "" {
		up.Role = orig.Role
	}

	if err := core.Validate.Struct(up); err != nil {
		return err
	}
	return svc.CheckUniqueness(up.Username, up.Email, orig)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single Person; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
