package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/school"
)

type (
	Repository interface {
		// ProvisionRecords inserts every record that does not already exist
		// for its (class, student, date) key and reports the number created.
		// Existing rows are never touched; each insert is a single
		// conditional write.
		ProvisionRecords(ctx context.Context, recs []Record, exec ...core.DBExecutor) (int, error)
		// UpsertRecord updates presence if the (class, student, date) record
		// exists, else creates it; a single atomic upsert.
		UpsertRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		QueryClassRecords(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Record, error)
		CountPresent(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error)
		DeleteStudentRecords(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error)
	}

	// Catalog is the slice of the school service the ledger needs: the roster
	// and the authoritative session list.
	Catalog interface {
		GetClass(ctx context.Context, id string) (school.ClassSection, error)
		Members(ctx context.Context, classID string) ([]identity.Person, error)
		SessionsFor(ctx context.Context, classID string) ([]school.ScheduledSession, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		catalog Catalog
	}
)

func NewService(db core.DB, repo Repository, catalog Catalog) *Service {
	return &Service{db: db, repo: repo, catalog: catalog}
}

// Matrix guarantees an attendance record exists for every (student, session)
// pair of the class — creating missing ones as absent in one transaction —
// and returns the roster × session grid aligned to session order. Calling it
// twice is safe: provisioning never duplicates rows nor overwrites presence.
func (svc *Service) Matrix(ctx context.Context, classID string) (Matrix, error) {
	members, sessions, err := svc.rosterAndSessions(ctx, classID)
	if err != nil {
		return Matrix{}, err
	}

	now := time.Now().UTC()
	missing := make([]Record, 0, len(members)*len(sessions))
	for _, m := range members {
		for _, s := range sessions {
			missing = append(missing, Record{
				ID:        uuid.New().String(),
				ClassID:   classID,
				StudentID: m.ID,
				Date:      s.Date,
				Present:   false,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	if len(missing) > 0 {
		err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
			_, err := svc.repo.ProvisionRecords(ctx, missing, tx)
			return err
		})
		if err != nil {
			return Matrix{}, err
		}
	}

	recs, err := svc.repo.QueryClassRecords(ctx, classID)
	if err != nil {
		return Matrix{}, err
	}
	present := make(map[string]bool, len(recs)) // (student, date) -> presence
	for _, r := range recs {
		present[r.StudentID+"|"+core.DateKey(r.Date)] = r.Present
	}

	m := Matrix{ClassID: classID, Dates: make([]time.Time, 0, len(sessions))}
	for _, s := range sessions {
		m.Dates = append(m.Dates, s.Date)
	}
	m.Students = make([]StudentRow, 0, len(members))
	for _, member := range members {
		row := StudentRow{
			StudentID:   member.ID,
			StudentName: member.Name,
			Entries:     make([]Entry, 0, len(sessions)),
		}
		for _, s := range sessions {
			row.Entries = append(row.Entries, Entry{
				Date:    s.Date,
				Present: present[member.ID+"|"+core.DateKey(s.Date)],
			})
		}
		m.Students = append(m.Students, row)
	}
	return m, nil
}

// SaveBatch upserts presence entries for a class in one transaction. Entries
// targeting unknown or unenrolled students, or dates outside the class's
// session list, are reported per entry while the rest of the batch commits.
// Contradictory duplicates of the same (student, date) within one batch
// resolve to the last value in iteration order (last write wins).
func (svc *Service) SaveBatch(ctx context.Context, classID string, entries []StudentEntries) (BatchResult, error) {
	members, sessions, err := svc.rosterAndSessions(ctx, classID)
	if err != nil {
		return BatchResult{}, err
	}
	enrolled := make(map[string]bool, len(members))
	for _, m := range members {
		enrolled[m.ID] = true
	}
	scheduled := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		scheduled[core.DateKey(s.Date)] = true
	}

	var res BatchResult
	now := time.Now().UTC()
	err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		for _, se := range entries {
			if !enrolled[se.StudentID] {
				res.Errors = append(res.Errors, EntryError{
					StudentID: se.StudentID, Reason: "student is not enrolled in this class",
				})
				continue
			}
			for _, e := range se.Entries {
				date := core.NormalizeDate(e.Date)
				if !scheduled[core.DateKey(date)] {
					res.Errors = append(res.Errors, EntryError{
						StudentID: se.StudentID, Date: core.DateKey(date),
						Reason: "date is not a scheduled session of this class",
					})
					continue
				}
				rec := Record{
					ID:        uuid.New().String(),
					ClassID:   classID,
					StudentID: se.StudentID,
					Date:      date,
					Present:   e.Present,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if _, err := svc.repo.UpsertRecord(ctx, rec, tx); err != nil {
					if err == core.ErrConflict {
						// lost a race; retry once
						if _, err = svc.repo.UpsertRecord(ctx, rec, tx); err == nil {
							res.Applied++
							continue
						}
					}
					return err
				}
				res.Applied++
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return res, nil
}

// CountPresent reports how many sessions the student attended.
func (svc *Service) CountPresent(ctx context.Context, classID, studentID string) (int, error) {
	return svc.repo.CountPresent(ctx, classID, studentID)
}

// ClassRecords returns every attendance row of the class.
func (svc *Service) ClassRecords(ctx context.Context, classID string) ([]Record, error) {
	if _, err := svc.catalog.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassRecords(ctx, classID)
}

// Purge removes a former student's historical attendance rows. Unenrollment
// alone retains them for audit; this is the only deletion path.
func (svc *Service) Purge(ctx context.Context, classID, studentID string) (int, error) {
	if _, err := svc.catalog.GetClass(ctx, classID); err != nil {
		return 0, err
	}
	return svc.repo.DeleteStudentRecords(ctx, classID, studentID)
}

func (svc *Service) rosterAndSessions(ctx context.Context, classID string) ([]identity.Person, []school.ScheduledSession, error) {
	if _, err := svc.catalog.GetClass(ctx, classID); err != nil {
		return nil, nil, err
	}
	members, err := svc.catalog.Members(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := svc.catalog.SessionsFor(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	return members, sessions, nil
}
