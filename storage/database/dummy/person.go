package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
)

type personRepository struct {
	db *DB
}

var _ identity.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *DB) *personRepository {
	return &personRepository{db: db}
}

func (repo *personRepository) CheckUniqueness(ctx context.Context, username, email string, excluded []identity.Person, exec ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.persons {
		if isExcluded(*p, excluded) {
			continue
		}
		if username != "" && p.Username == username {
			return identity.ErrUsernameExists
		}
		if email != "" && p.Email == email {
			return identity.ErrEmailExists
		}
	}
	return nil
}

func (repo *personRepository) CreatePerson(ctx context.Context, p identity.Person, exec ...core.DBExecutor) (identity.Person, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = uuid.New().String()
	repo.db.persons[p.ID] = &p
	return p, nil
}

func (repo *personRepository) GetPerson(ctx context.Context, filter identity.GetFilter, exec ...core.DBExecutor) (identity.Person, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.persons[filter.ID]; ok {
			return *p, nil
		}
		return identity.Person{}, identity.ErrNotFound
	}
	for _, p := range repo.db.persons {
		switch {
		case filter.Username != "" && p.Username == filter.Username:
			return *p, nil
		case filter.Email != "" && p.Email == filter.Email:
			return *p, nil
		case filter.UsernameOrEmail != "" &&
			(p.Username == filter.UsernameOrEmail || p.Email == filter.UsernameOrEmail):
			return *p, nil
		}
	}
	return identity.Person{}, identity.ErrNotFound
}

func (repo *personRepository) QueryPersons(ctx context.Context, filter *identity.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]identity.Person, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	persons := make([]identity.Person, 0, len(repo.db.persons))
	for _, p := range repo.db.persons {
		if filter != nil && !matchesFilter(*p, filter) {
			continue
		}
		persons = append(persons, *p)
	}
	sort.Slice(persons, func(i, j int) bool { return persons[i].Name < persons[j].Name })
	return persons, nil
}

func (repo *personRepository) QueryPersonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]identity.Person, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	persons := make([]identity.Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := repo.db.persons[id]; ok {
			persons = append(persons, *p)
		}
	}
	return persons, nil
}

func (repo *personRepository) UpdatePerson(ctx context.Context, p identity.Person, exec ...core.DBExecutor) (identity.Person, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.persons[p.ID]
	if !ok {
		return identity.Person{}, identity.ErrNotFound
	}
	updated := *orig
	if p.Name != "" {
		updated.Name = p.Name
	}
	if p.Username != "" {
		updated.Username = p.Username
	}
	if p.Email != "" {
		updated.Email = p.Email
	}
	if p.Role != "" {
		updated.Role = p.Role
	}
	if p.Phone != "" {
		updated.Phone = p.Phone
	}
	if !p.BirthDate.IsZero() {
		updated.BirthDate = p.BirthDate
	}
	if p.IsActive != nil {
		updated.IsActive = p.IsActive
	}
	if p.PasswordHash != nil {
		updated.PasswordHash = p.PasswordHash
	}
	if !p.LastLogin.IsZero() {
		updated.LastLogin = p.LastLogin
	}
	if !p.UpdatedAt.IsZero() {
		updated.UpdatedAt = p.UpdatedAt
	}
	repo.db.persons[p.ID] = &updated
	return updated, nil
}

func (repo *personRepository) DeletePersonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.persons[id]; ok {
			delete(repo.db.persons, id)
			n++
		}
	}
	return n, nil
}

func isExcluded(p identity.Person, excluded []identity.Person) bool {
	for _, x := range excluded {
		if x.ID == p.ID {
			return true
		}
	}
	return false
}

func matchesFilter(p identity.Person, filter *identity.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.Name), s) &&
			!strings.Contains(strings.ToLower(p.Username), s) &&
			!strings.Contains(strings.ToLower(p.Email), s) {
			return false
		}
	}
	if filter.Role != "" && p.Role != filter.Role {
		return false
	}
	if filter.IsActive != nil && (p.IsActive == nil || *p.IsActive != *filter.IsActive) {
		return false
	}
	if !filter.CreatedFrom.IsZero() && p.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && p.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}
