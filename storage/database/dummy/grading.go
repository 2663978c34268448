package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grading"
)

func sortRecords(recs []grading.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ClassID == recs[j].ClassID {
			return recs[i].StudentID < recs[j].StudentID
		}
		return recs[i].ClassID < recs[j].ClassID
	})
}

type gradingRepository struct {
	db *DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *gradingRepository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) EnsureRecord(ctx context.Context, rec grading.Record, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	k := key2(rec.ClassID, rec.StudentID)
	if _, exists := repo.db.grades[k]; exists {
		return false, nil
	}
	repo.db.grades[k] = &rec
	return true, nil
}

func (repo *gradingRepository) GetRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (grading.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.grades[key2(classID, studentID)]; ok {
		return *rec, nil
	}
	return grading.Record{}, grading.ErrNotFound
}

func (repo *gradingRepository) QueryClassRecords(ctx context.Context, classID string, exec ...core.DBExecutor) ([]grading.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]grading.Record, 0)
	for _, r := range repo.db.grades {
		if r.ClassID == classID {
			recs = append(recs, *r)
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (repo *gradingRepository) QueryStudentRecords(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]grading.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]grading.Record, 0)
	for _, r := range repo.db.grades {
		if r.StudentID == studentID {
			recs = append(recs, *r)
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (repo *gradingRepository) UpsertScores(ctx context.Context, rec grading.Record, exec ...core.DBExecutor) (grading.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	k := key2(rec.ClassID, rec.StudentID)
	if existing, ok := repo.db.grades[k]; ok {
		updated := *existing
		updated.Scores = rec.Scores
		updated.UpdatedAt = rec.UpdatedAt
		repo.db.grades[k] = &updated
		return updated, nil
	}
	repo.db.grades[k] = &rec
	return rec, nil
}

func (repo *gradingRepository) DeleteRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	k := key2(classID, studentID)
	if _, ok := repo.db.grades[k]; !ok {
		return 0, nil
	}
	delete(repo.db.grades, k)
	return 1, nil
}
