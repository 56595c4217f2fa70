package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"

	"participium/models"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func TestUpdateReportStatusOptimistic(t *testing.T) {
	it(func() {
		service := NewReportService(db)
		assignee := int64(200)
		report := &models.Report{
			ID:         14,
			Status:     models.StatusAssigned,
			AssigneeID: &assignee,
		}

		// The concurrent-writer case: the conditioned update touches no row.
		mock.ExpectExec("UPDATE reports SET status = (.+), assignee_id = (.+), rejection_reason = (.+), updated_at = (.+) WHERE id = (.+) AND status = (.+)").
			WithArgs("ASSIGNED", &assignee, report.RejectionReason, sqlmock.AnyArg(), int64(14), "PENDING_APPROVAL").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.UpdateReportStatus(context.Background(), report, models.StatusPendingApproval)
		if !errors.Is(err, models.ErrConflict) {
			t.Errorf("expected conflict on zero affected rows, got %v", err)
		}
		if !report.UpdatedAt.IsZero() {
			t.Error("conflicting write must not bump the report timestamp")
		}

		// The happy case: exactly one row updated and the report carries the
		// persisted update timestamp.
		mock.ExpectExec("UPDATE reports SET status = (.+), assignee_id = (.+), rejection_reason = (.+), updated_at = (.+) WHERE id = (.+) AND status = (.+)").
			WithArgs("ASSIGNED", &assignee, report.RejectionReason, sqlmock.AnyArg(), int64(14), "PENDING_APPROVAL").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := service.UpdateReportStatus(context.Background(), report, models.StatusPendingApproval); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if report.UpdatedAt.IsZero() {
			t.Error("committed write must hand back the new update timestamp")
		}
	})
}

func TestGetReportNotFound(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+)").
			WithArgs(int64(999)).
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetReport(context.Background(), 999)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected not-found, got %v", err)
		}
	})
}

func TestGetReportScansColumns(t *testing.T) {
	it(func() {
		service := NewReportService(db)
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"id", "reporter_id", "title", "description", "category", "latitude", "longitude",
			"is_anonymous", "status", "rejection_reason", "assignee_id", "created_at", "updated_at",
		}).AddRow(int64(7), nil, "Broken lamp", "Dark corner for a week", "PUBLIC_LIGHTING",
			45.0703, 7.6869, false, "PENDING_APPROVAL", nil, nil, now, now)

		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+)").
			WithArgs(int64(7)).
			WillReturnRows(rows)

		report, err := service.GetReport(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Status != models.StatusPendingApproval {
			t.Errorf("status = %s, want PENDING_APPROVAL", report.Status)
		}
		if report.Category != models.CategoryPublicLighting {
			t.Errorf("category = %s, want PUBLIC_LIGHTING", report.Category)
		}
		if report.ReporterID != nil || report.AssigneeID != nil {
			t.Error("null columns should scan to nil pointers")
		}
	})
}

func TestCountActiveReportsByAssignee(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		rows := sqlmock.NewRows([]string{"id", "count"}).
			AddRow(int64(100), 3).
			AddRow(int64(200), 1).
			AddRow(int64(300), 0)

		mock.ExpectQuery("SELECT u.id, COUNT\\(r.id\\) FROM users u LEFT JOIN reports r ON (.+) WHERE u.department_id = (.+) AND u.role_id = (.+) GROUP BY u.id").
			WithArgs(int64(2), int64(7)).
			WillReturnRows(rows)

		caseloads, err := service.CountActiveReportsByAssignee(context.Background(), models.Position{DepartmentID: 2, RoleID: 7})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(caseloads) != 3 {
			t.Fatalf("got %d staff entries, want 3 (zero caseloads included)", len(caseloads))
		}
		if caseloads[100] != 3 || caseloads[200] != 1 || caseloads[300] != 0 {
			t.Errorf("unexpected caseloads: %v", caseloads)
		}
	})
}

func TestListStaffByPosition(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(100)).AddRow(int64(200))

		mock.ExpectQuery("SELECT u.id FROM users u JOIN department_roles dr ON (.+) WHERE u.department_id = (.+) AND u.role_id = (.+) ORDER BY u.id ASC").
			WithArgs(int64(2), int64(7)).
			WillReturnRows(rows)

		staff, err := service.ListStaffByPosition(context.Background(), models.Position{DepartmentID: 2, RoleID: 7})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(staff) != 2 || staff[0] != 100 || staff[1] != 200 {
			t.Errorf("unexpected staff list: %v", staff)
		}
	})
}

func TestGetPositionForRole(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		mock.ExpectQuery("SELECT department_id FROM department_roles WHERE role_id = (.+) ORDER BY department_id ASC LIMIT 1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"department_id"}).AddRow(int64(2)))

		pos, err := service.GetPositionForRole(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pos.DepartmentID != 2 || pos.RoleID != 7 {
			t.Errorf("unexpected position: %v", pos)
		}

		mock.ExpectQuery("SELECT department_id FROM department_roles WHERE role_id = (.+) ORDER BY department_id ASC LIMIT 1").
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		if _, err := service.GetPositionForRole(context.Background(), 9); !errors.Is(err, models.ErrCategoryNotConfigured) {
			t.Errorf("expected not-configured for unattached role, got %v", err)
		}
	})
}

func TestResolveActor(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		// A staff member with a full position.
		rows := sqlmock.NewRows([]string{"department_id", "role_id", "name", "classification"}).
			AddRow(int64(2), int64(7), "Maintenance Staff", "TECHNICAL_STAFF")
		mock.ExpectQuery("SELECT u.department_id, u.role_id, r.name, r.classification FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = (.+)").
			WithArgs(int64(100)).
			WillReturnRows(rows)

		actor, err := service.ResolveActor(context.Background(), 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actor.Classification != models.ClassificationTechnicalStaff {
			t.Errorf("classification = %s, want TECHNICAL_STAFF", actor.Classification)
		}
		if actor.Position() != (models.Position{DepartmentID: 2, RoleID: 7}) {
			t.Errorf("unexpected position: %v", actor.Position())
		}

		// A plain citizen carries no position and defaults to CITIZEN.
		rows = sqlmock.NewRows([]string{"department_id", "role_id", "name", "classification"}).
			AddRow(nil, nil, nil, nil)
		mock.ExpectQuery("SELECT u.department_id, u.role_id, r.name, r.classification FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = (.+)").
			WithArgs(int64(55)).
			WillReturnRows(rows)

		actor, err = service.ResolveActor(context.Background(), 55)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actor.Classification != models.ClassificationCitizen {
			t.Errorf("classification = %s, want CITIZEN", actor.Classification)
		}
	})
}

func TestUpsertCategoryRole(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		mock.ExpectExec("INSERT INTO category_roles \\(category, role_id\\) VALUES \\((.+), (.+)\\) ON DUPLICATE KEY UPDATE role_id = (.+)").
			WithArgs("PUBLIC_LIGHTING", int64(7), int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := service.UpsertCategoryRole(context.Background(), models.CategoryPublicLighting, 7); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestInsertAuditEntry(t *testing.T) {
	it(func() {
		service := NewReportService(db)

		mock.ExpectExec("INSERT INTO report_audit \\(report_id, actor_id, from_status, to_status, reason\\) VALUES (.+)").
			WithArgs(int64(14), int64(9), "PENDING_APPROVAL", "ASSIGNED", "").
			WillReturnResult(sqlmock.NewResult(1, 1))

		entry := &models.AuditEntry{
			ReportID:   14,
			ActorID:    9,
			FromStatus: models.StatusPendingApproval,
			ToStatus:   models.StatusAssigned,
		}
		if err := service.InsertAuditEntry(context.Background(), entry); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
