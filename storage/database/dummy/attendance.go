package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) ProvisionRecords(ctx context.Context, recs []attendance.Record, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var created int
	for i := range recs {
		rec := recs[i]
		k := key3(rec.ClassID, rec.StudentID, core.DateKey(rec.Date))
		if _, exists := repo.db.attendance[k]; exists {
			continue
		}
		repo.db.attendance[k] = &rec
		created++
	}
	return created, nil
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	k := key3(rec.ClassID, rec.StudentID, core.DateKey(rec.Date))
	if existing, ok := repo.db.attendance[k]; ok {
		updated := *existing
		updated.Present = rec.Present
		updated.UpdatedAt = rec.UpdatedAt
		repo.db.attendance[k] = &updated
		return updated, nil
	}
	repo.db.attendance[k] = &rec
	return rec, nil
}

func (repo *attendanceRepository) QueryClassRecords(ctx context.Context, classID string, exec ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, r := range repo.db.attendance {
		if r.ClassID == classID {
			recs = append(recs, *r)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].StudentID == recs[j].StudentID {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].StudentID < recs[j].StudentID
	})
	return recs, nil
}

func (repo *attendanceRepository) CountPresent(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, r := range repo.db.attendance {
		if r.ClassID == classID && r.StudentID == studentID && r.Present {
			n++
		}
	}
	return n, nil
}

func (repo *attendanceRepository) DeleteStudentRecords(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for k, r := range repo.db.attendance {
		if r.ClassID == classID && r.StudentID == studentID {
			delete(repo.db.attendance, k)
			n++
		}
	}
	return n, nil
}
