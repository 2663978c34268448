package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
)

type personRow struct {
	ID           string      `db:"id"`
	Name         null.String `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	Role         null.String `db:"role"`
	Phone        null.String `db:"phone"`
	BirthDate    null.Time   `db:"birth_date"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

const personColumns = "id, name, username, email, role, phone, birth_date, is_active, password_hash, created_at, updated_at, last_login"

type personRepository struct {
	exec core.DBExecutor
}

var _ identity.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(exec core.DBExecutor) *personRepository {
	return &personRepository{exec: exec}
}

func (repo personRepository) pack(p identity.Person) personRow {
	return personRow{
		ID:           p.ID,
		Name:         null.NewString(p.Name, p.Name != ""),
		Username:     null.NewString(p.Username, p.Username != ""),
		Email:        null.NewString(p.Email, p.Email != ""),
		Role:         null.NewString(p.Role, p.Role != ""),
		Phone:        null.NewString(p.Phone, p.Phone != ""),
		BirthDate:    null.NewTime(p.BirthDate.UTC(), !p.BirthDate.IsZero()),
		IsActive:     null.BoolFromPtr(p.IsActive),
		PasswordHash: null.NewBytes(p.PasswordHash, len(p.PasswordHash) > 0),
		CreatedAt:    null.NewTime(p.CreatedAt.UTC(), !p.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(p.UpdatedAt.UTC(), !p.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(p.LastLogin.UTC(), !p.LastLogin.IsZero()),
	}
}

func (repo personRepository) unpack(row personRow) identity.Person {
	return identity.Person{
		ID:           row.ID,
		Name:         row.Name.String,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Role:         row.Role.String,
		Phone:        row.Phone.String,
		BirthDate:    row.BirthDate.Time,
		IsActive:     row.IsActive.Ptr(),
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo personRepository) unpackSlice(rows []personRow) []identity.Person {
	persons := make([]identity.Person, 0, len(rows))
	for _, row := range rows {
		persons = append(persons, repo.unpack(row))
	}
	return persons
}

// trapNoRowsErr maps psql "no rows" err to identity.ErrNotFound
func (repo personRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return identity.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo personRepository) CheckUniqueness(ctx context.Context, username, email string, excluded []identity.Person, exec ...core.DBExecutor) error {
	args := []interface{}{username, email}
	q := `SELECT username = $1 FROM person WHERE (username = $1 OR email = $2)`
	if len(excluded) > 0 {
		marks := make([]string, 0, len(excluded))
		for _, p := range excluded {
			args = append(args, p.ID)
			marks = append(marks, fmt.Sprintf("$%d", len(args)))
		}
		q += fmt.Sprintf(" AND id NOT IN (%s)", strings.Join(marks, ","))
	}
	q += " ORDER BY (username = $1) DESC LIMIT 1"

	var usernameTaken bool
	err := getExec(repo.exec, exec).GetContext(ctx, &usernameTaken, q, args...)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "checking person uniqueness")
	}
	if usernameTaken {
		return identity.ErrUsernameExists
	}
	return identity.ErrEmailExists
}

func (repo personRepository) CreatePerson(ctx context.Context, p identity.Person, exec ...core.DBExecutor) (identity.Person, error) {
	p.ID = uuid.New().String()
	row := repo.pack(p)
	q := `
	INSERT INTO person (` + personColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		row.ID, row.Name, row.Username, row.Email, row.Role, row.Phone,
		row.BirthDate, row.IsActive, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return identity.Person{}, errors.Wrap(err, "inserting person")
	}
	return p, nil
}

func (repo personRepository) GetPerson(ctx context.Context, filter identity.GetFilter, exec ...core.DBExecutor) (identity.Person, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return identity.Person{}, identity.ErrNotFound
		}
		where, args = "id = $1", []interface{}{filter.ID}
	case filter.Username != "":
		where, args = "username = $1", []interface{}{filter.Username}
	case filter.Email != "":
		where, args = "email = $1", []interface{}{filter.Email}
	case filter.UsernameOrEmail != "":
		where, args = "username = $1 OR email = $1", []interface{}{filter.UsernameOrEmail}
	default:
		return identity.Person{}, identity.ErrNotFound
	}

	var row personRow
	q := `SELECT ` + personColumns + ` FROM person WHERE ` + where
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, args...); err != nil {
		return identity.Person{}, repo.trapNoRowsErr(err, "finding person")
	}
	return repo.unpack(row), nil
}

func (repo personRepository) QueryPersons(ctx context.Context, filter *identity.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]identity.Person, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			mark := fmt.Sprintf("$%d", len(args))
			conds = append(conds, fmt.Sprintf("(name ILIKE %s OR username ILIKE %s OR email ILIKE %s)", mark, mark, mark))
		}
		if filter.Role != "" {
			args = append(args, filter.Role)
			conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
		}
		if !filter.CreatedFrom.IsZero() {
			args = append(args, filter.CreatedFrom.UTC())
			conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
		}
		if !filter.CreatedTo.IsZero() {
			args = append(args, filter.CreatedTo.UTC())
			conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
		}
	}

	q := `SELECT ` + personColumns + ` FROM person`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		q += " ORDER BY name, id"
	}

	var rows []personRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying persons")
	}
	return repo.unpackSlice(rows), nil
}

func (repo personRepository) QueryPersonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]identity.Person, error) {
	if len(ids) == 0 {
		return []identity.Person{}, nil
	}
	args := make([]interface{}, 0, len(ids))
	marks := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		marks = append(marks, fmt.Sprintf("$%d", len(args)))
	}

	var rows []personRow
	q := `SELECT ` + personColumns + ` FROM person WHERE id IN (` + strings.Join(marks, ",") + `) ORDER BY name, id`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying persons by ID")
	}
	return repo.unpackSlice(rows), nil
}

// UpdatePerson writes the set fields only; zero-valued fields keep their
// stored values.
func (repo personRepository) UpdatePerson(ctx context.Context, p identity.Person, exec ...core.DBExecutor) (identity.Person, error) {
	row := repo.pack(p)

	var (
		sets []string
		args []interface{}
	)
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if row.Name.Valid {
		set("name", row.Name)
	}
	if row.Username.Valid {
		set("username", row.Username)
	}
	if row.Email.Valid {
		set("email", row.Email)
	}
	if row.Role.Valid {
		set("role", row.Role)
	}
	if row.Phone.Valid {
		set("phone", row.Phone)
	}
	if row.BirthDate.Valid {
		set("birth_date", row.BirthDate)
	}
	if row.IsActive.Valid {
		set("is_active", row.IsActive)
	}
	if row.PasswordHash.Valid {
		set("password_hash", row.PasswordHash)
	}
	if row.UpdatedAt.Valid {
		set("updated_at", row.UpdatedAt)
	}
	if row.LastLogin.Valid {
		set("last_login", row.LastLogin)
	}
	if len(sets) == 0 {
		return repo.GetPerson(ctx, identity.GetFilter{ID: p.ID}, exec...)
	}

	args = append(args, p.ID)
	q := fmt.Sprintf(
		"UPDATE person SET %s WHERE id = $%d RETURNING "+personColumns,
		strings.Join(sets, ", "), len(args),
	)

	var updated personRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &updated, q, args...); err != nil {
		return identity.Person{}, repo.trapNoRowsErr(err, "updating person")
	}
	return repo.unpack(updated), nil
}

func (repo personRepository) DeletePersonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(ids))
	marks := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		marks = append(marks, fmt.Sprintf("$%d", len(args)))
	}

	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM person WHERE id IN (`+strings.Join(marks, ",")+`)`, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting persons")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting persons")
	}
	return int(cnt), nil
}
