package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/tests"
)

func dec(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("dec(%s) failed: %v", s, err)
	}
	return d
}

func Test_gradeApi(t *testing.T) {
	app, svcs := setup(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	hero := testutil.CreatePerson(t, svcs.PersonRepo, "Hero", "hero", "hero@test.cd", identity.RoleStudent, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")
	class := testutil.CreateClass(t, svcs.School, "Go 101", level.ID, period.ID, teacher.ID, 0)
	testutil.Enroll(t, svcs.School, class.ID, hero.ID)

	dates := []time.Time{
		testutil.Date(2026, time.March, 2),
		testutil.Date(2026, time.March, 9),
	}
	testutil.ScheduleSessions(t, svcs.School, class.ID, dates...)

	teacherToken := getToken(t, teacher)
	base := "/v1/classes/" + class.ID + "/grades"

	t.Run("config", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/grading/config", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("config failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var cfg GradingConfigResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
			t.Fatalf("unmarshalling GradingConfigResponse failed: %v", err)
		}
		if len(cfg.Components) != 4 {
			t.Errorf("Components = %v; want the 4 configured", cfg.Components)
		}
		if !cfg.GradeThreshold.Equal(dec(t, "10.5")) || !cfg.AttendanceThreshold.Equal(dec(t, "75")) {
			t.Errorf("thresholds = %s / %s", cfg.GradeThreshold, cfg.AttendanceThreshold)
		}
	})

	t.Run("students cannot enter grades", func(t *testing.T) {
		body := marchallObj(t, UpsertScoresRequest{Scores: grading.Scores{"n1": dec(t, "12")}})
		req, rec := newAuthRequest(http.MethodPut, base+"/"+hero.ID, getToken(t, hero), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("out-of-range score", func(t *testing.T) {
		body := marchallObj(t, UpsertScoresRequest{Scores: grading.Scores{"n1": dec(t, "21")}})
		req, rec := newAuthRequest(http.MethodPut, base+"/"+hero.ID, teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want 400", rec.Code)
		}
	})

	t.Run("unknown component", func(t *testing.T) {
		body := marchallObj(t, UpsertScoresRequest{Scores: grading.Scores{"bonus": dec(t, "5")}})
		req, rec := newAuthRequest(http.MethodPut, base+"/"+hero.ID, teacherToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"bonus": "unknown grade component"}),
		}, rec)
	})

	t.Run("upsert scores", func(t *testing.T) {
		body := marchallObj(t, UpsertScoresRequest{Scores: grading.Scores{
			"n1": dec(t, "12"), "n2": dec(t, "12"), "n3": dec(t, "12"), "n4": dec(t, "12"),
		}})
		req, rec := newAuthRequest(http.MethodPut, base+"/"+hero.ID, teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("upsert failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var rec2 grading.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &rec2); err != nil {
			t.Fatalf("unmarshalling Record failed: %v", err)
		}
		if !rec2.Scores["n1"].Equal(dec(t, "12")) {
			t.Errorf("Scores = %v", rec2.Scores)
		}
	})

	t.Run("class records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base, teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("list failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var recs []grading.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
			t.Fatalf("unmarshalling records failed: %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("len(records) = %d; want 1", len(recs))
		}
	})

	t.Run("approval status", func(t *testing.T) {
		// full attendance
		_, err := svcs.Attendance.SaveBatch(ctx, class.ID, []attendance.StudentEntries{{
			StudentID: hero.ID,
			Entries: []attendance.Entry{
				{Date: dates[0], Present: true},
				{Date: dates[1], Present: true},
			},
		}})
		if err != nil {
			t.Fatalf("SaveBatch() failed: %v", err)
		}

		req, rec := newAuthRequest(http.MethodGet, base+"/"+hero.ID+"/status", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var status ApprovalStatusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("unmarshalling ApprovalStatusResponse failed: %v", err)
		}
		if status.Status != grading.StatusApproved {
			t.Errorf("Status = %s; want %s", status.Status, grading.StatusApproved)
		}
		if !status.Average.Equal(dec(t, "12")) || !status.AttendancePct.Equal(dec(t, "100")) {
			t.Errorf("Average/AttendancePct = %s/%s; want 12/100", status.Average, status.AttendancePct)
		}
	})

	t.Run("status with no grade record is a zero record", func(t *testing.T) {
		ghostClass := testutil.CreateClass(t, svcs.School, "Ghost", level.ID, period.ID, teacher.ID, 0)
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+ghostClass.ID+"/grades/"+hero.ID+"/status", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var status ApprovalStatusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("unmarshalling ApprovalStatusResponse failed: %v", err)
		}
		if status.Status != grading.StatusDisapproved || !status.Average.IsZero() {
			t.Errorf("status = %+v; want zero-valued %s", status, grading.StatusDisapproved)
		}
	})
}
