package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Academic periods

func (repo *schoolRepository) CreatePeriod(ctx context.Context, p school.AcademicPeriod, exec ...core.DBExecutor) (school.AcademicPeriod, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.periods {
		if existing.Name == p.Name {
			return school.AcademicPeriod{}, school.ErrPeriodExists
		}
	}
	p.ID = uuid.New().String()
	repo.db.periods[p.ID] = &p
	return p, nil
}

func (repo *schoolRepository) GetPeriod(ctx context.Context, id string, exec ...core.DBExecutor) (school.AcademicPeriod, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.periods[id]; ok {
		return *p, nil
	}
	return school.AcademicPeriod{}, school.ErrPeriodNotFound
}

func (repo *schoolRepository) QueryPeriods(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]school.AcademicPeriod, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	periods := make([]school.AcademicPeriod, 0, len(repo.db.periods))
	for _, p := range repo.db.periods {
		if activeOnly && !p.IsActive {
			continue
		}
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Year == periods[j].Year {
			return periods[i].Name < periods[j].Name
		}
		return periods[i].Year < periods[j].Year
	})
	return periods, nil
}

func (repo *schoolRepository) UpdatePeriod(ctx context.Context, p school.AcademicPeriod, exec ...core.DBExecutor) (school.AcademicPeriod, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.periods[p.ID]; !ok {
		return school.AcademicPeriod{}, school.ErrPeriodNotFound
	}
	repo.db.periods[p.ID] = &p
	return p, nil
}

// Levels

func (repo *schoolRepository) CreateLevel(ctx context.Context, l school.Level, exec ...core.DBExecutor) (school.Level, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.levels {
		if existing.Name == l.Name {
			return school.Level{}, school.ErrLevelExists
		}
	}
	l.ID = uuid.New().String()
	repo.db.levels[l.ID] = &l
	return l, nil
}

func (repo *schoolRepository) GetLevel(ctx context.Context, id string, exec ...core.DBExecutor) (school.Level, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.levels[id]; ok {
		return *l, nil
	}
	return school.Level{}, school.ErrLevelNotFound
}

func (repo *schoolRepository) QueryLevels(ctx context.Context, exec ...core.DBExecutor) ([]school.Level, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	levels := make([]school.Level, 0, len(repo.db.levels))
	for _, l := range repo.db.levels {
		levels = append(levels, *l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Name < levels[j].Name })
	return levels, nil
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, c school.ClassSection, exec ...core.DBExecutor) (school.ClassSection, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = uuid.New().String()
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (school.ClassSection, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return *c, nil
	}
	return school.ClassSection{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, filter *school.ClassFilter, exec ...core.DBExecutor) ([]school.ClassSection, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.ClassSection, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		if filter != nil {
			if filter.PeriodID != "" && c.PeriodID != filter.PeriodID {
				continue
			}
			if filter.LevelID != "" && c.LevelID != filter.LevelID {
				continue
			}
			// teacher filter matches titular and assistant alike
			if filter.TeacherID != "" && c.TeacherID != filter.TeacherID && c.AssistantID != filter.TeacherID {
				continue
			}
			if filter.ActivePeriodsOnly {
				p, ok := repo.db.periods[c.PeriodID]
				if !ok || !p.IsActive {
					continue
				}
			}
		}
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name == classes[j].Name {
			return classes[i].ID < classes[j].ID
		}
		return classes[i].Name < classes[j].Name
	})
	return classes, nil
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, c school.ClassSection, exec ...core.DBExecutor) (school.ClassSection, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[c.ID]; !ok {
		return school.ClassSection{}, school.ErrClassNotFound
	}
	repo.db.classes[c.ID] = &c
	return c, nil
}

// Sessions

func (repo *schoolRepository) CreateSession(ctx context.Context, s school.ScheduledSession, exec ...core.DBExecutor) (school.ScheduledSession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// same (class, date) is a no-op; the existing session wins
	for _, existing := range repo.db.sessions {
		if existing.ClassID == s.ClassID && existing.Date.Equal(s.Date) {
			return *existing, nil
		}
	}
	s.ID = uuid.New().String()
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (school.ScheduledSession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		return *s, nil
	}
	return school.ScheduledSession{}, school.ErrSessionNotFound
}

func (repo *schoolRepository) QuerySessions(ctx context.Context, classID string, exec ...core.DBExecutor) ([]school.ScheduledSession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]school.ScheduledSession, 0)
	for _, s := range repo.db.sessions {
		if s.ClassID == classID {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Date.Before(sessions[j].Date) })
	return sessions, nil
}

func (repo *schoolRepository) DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return 0, nil
	}
	delete(repo.db.sessions, id)
	return 1, nil
}

// Roster

func (repo *schoolRepository) AddMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	members, ok := repo.db.roster[classID]
	if !ok {
		members = make(map[string]int)
		repo.db.roster[classID] = members
	}
	if _, enrolled := members[studentID]; enrolled {
		return false, nil
	}
	repo.db.rosterSeq++
	members[studentID] = repo.db.rosterSeq
	return true, nil
}

func (repo *schoolRepository) RemoveMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	members, ok := repo.db.roster[classID]
	if !ok {
		return false, nil
	}
	if _, enrolled := members[studentID]; !enrolled {
		return false, nil
	}
	delete(members, studentID)
	return true, nil
}

func (repo *schoolRepository) QueryMemberIDs(ctx context.Context, classID string, exec ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	members := repo.db.roster[classID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	// enrollment order
	sort.Slice(ids, func(i, j int) bool { return members[ids[i]] < members[ids[j]] })
	return ids, nil
}

func (repo *schoolRepository) IsMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, enrolled := repo.db.roster[classID][studentID]
	return enrolled, nil
}
