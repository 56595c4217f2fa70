package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"

	"participium/models"
)

// ReportService handles all report-lifecycle database operations.
type ReportService struct {
	db *sql.DB
}

// NewReportService creates a new report database service instance.
func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db}
}

// CreateReport inserts a new report and populates its id and timestamps.
func (s *ReportService) CreateReport(ctx context.Context, report *models.Report) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (reporter_id, title, description, category, latitude, longitude, is_anonymous, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ReporterID, report.Title, report.Description, string(report.Category),
		report.Latitude, report.Longitude, report.IsAnonymous, string(report.Status))
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted report id: %w", err)
	}
	report.ID = id

	created, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	report.CreatedAt = created.CreatedAt
	report.UpdatedAt = created.UpdatedAt
	return nil
}

// GetReport loads a report by id, returning models.ErrNotFound for an
// unknown id.
func (s *ReportService) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	report := &models.Report{}
	var category, status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reporter_id, title, description, category, latitude, longitude,
		       is_anonymous, status, rejection_reason, assignee_id, created_at, updated_at
		FROM reports WHERE id = ?`, id).Scan(
		&report.ID, &report.ReporterID, &report.Title, &report.Description, &category,
		&report.Latitude, &report.Longitude, &report.IsAnonymous, &status,
		&report.RejectionReason, &report.AssigneeID, &report.CreatedAt, &report.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report %d: %w", id, err)
	}

	report.Category = models.Category(category)
	report.Status = models.ReportStatus(status)
	return report, nil
}

// ListReports returns reports, optionally filtered by status, newest first.
func (s *ReportService) ListReports(ctx context.Context, status *models.ReportStatus) ([]*models.Report, error) {
	query := `
		SELECT id, reporter_id, title, description, category, latitude, longitude,
		       is_anonymous, status, rejection_reason, assignee_id, created_at, updated_at
		FROM reports`
	args := []interface{}{}
	if status != nil {
		query += " WHERE status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		report := &models.Report{}
		var category, statusStr string
		if err := rows.Scan(
			&report.ID, &report.ReporterID, &report.Title, &report.Description, &category,
			&report.Latitude, &report.Longitude, &report.IsAnonymous, &statusStr,
			&report.RejectionReason, &report.AssigneeID, &report.CreatedAt, &report.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report.Category = models.Category(category)
		report.Status = models.ReportStatus(statusStr)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// UpdateReportStatus persists status, assignee and rejection reason with an
// optimistic condition on the previously read status. Zero affected rows
// means a concurrent writer got there first; the caller decides whether to
// retry. The update timestamp is set here so the report handed back to the
// caller matches what was persisted.
func (s *ReportService) UpdateReportStatus(ctx context.Context, report *models.Report, expectedPrior models.ReportStatus) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = ?, assignee_id = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(report.Status), report.AssigneeID, report.RejectionReason, now,
		report.ID, string(expectedPrior))
	if err != nil {
		return fmt.Errorf("failed to update report %d: %w", report.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for report %d: %w", report.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: report %d no longer in %s", models.ErrConflict, report.ID, expectedPrior)
	}
	report.UpdatedAt = now
	return nil
}

// ListStaffByPosition returns the ids of staff users holding a concrete
// (department, role) position, ascending.
func (s *ReportService) ListStaffByPosition(ctx context.Context, pos models.Position) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id
		FROM users u
		JOIN department_roles dr ON dr.department_id = u.department_id AND dr.role_id = u.role_id
		WHERE u.department_id = ? AND u.role_id = ?
		ORDER BY u.id ASC`, pos.DepartmentID, pos.RoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff for position %v: %w", pos, err)
	}
	defer rows.Close()

	staff := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan staff id: %w", err)
		}
		staff = append(staff, id)
	}
	return staff, rows.Err()
}

// CountActiveReportsByAssignee returns the active caseload (ASSIGNED,
// IN_PROGRESS or SUSPENDED reports) per staff member of a position. Staff
// with an empty caseload appear with a count of zero so the assignment
// engine sees the whole headcount in one consistent read.
func (s *ReportService) CountActiveReportsByAssignee(ctx context.Context, pos models.Position) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, COUNT(r.id)
		FROM users u
		LEFT JOIN reports r ON r.assignee_id = u.id AND r.status IN ('ASSIGNED', 'IN_PROGRESS', 'SUSPENDED')
		WHERE u.department_id = ? AND u.role_id = ?
		GROUP BY u.id`, pos.DepartmentID, pos.RoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query caseloads for position %v: %w", pos, err)
	}
	defer rows.Close()

	caseloads := map[int64]int{}
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan caseload row: %w", err)
		}
		caseloads[id] = count
	}
	return caseloads, rows.Err()
}

// GetPositionForRole resolves the concrete position a role is exercised in.
// When a role exists in several departments the lowest department id wins,
// keeping routing deterministic.
func (s *ReportService) GetPositionForRole(ctx context.Context, roleID int64) (models.Position, error) {
	var departmentID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT department_id FROM department_roles
		WHERE role_id = ?
		ORDER BY department_id ASC
		LIMIT 1`, roleID).Scan(&departmentID)
	if err == sql.ErrNoRows {
		return models.Position{}, fmt.Errorf("%w: role %d is not attached to any department", models.ErrCategoryNotConfigured, roleID)
	}
	if err != nil {
		return models.Position{}, fmt.Errorf("failed to resolve position for role %d: %w", roleID, err)
	}
	return models.Position{DepartmentID: departmentID, RoleID: roleID}, nil
}

// ResolveActor resolves a user id to its organizational position and
// classification. Users without a staff position resolve as citizens.
func (s *ReportService) ResolveActor(ctx context.Context, userID int64) (*models.Actor, error) {
	actor := &models.Actor{UserID: userID}
	var departmentID, roleID sql.NullInt64
	var roleName, classification sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT u.department_id, u.role_id, r.name, r.classification
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = ?`, userID).Scan(&departmentID, &roleID, &roleName, &classification)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor %d: %w", userID, err)
	}

	actor.Classification = models.ClassificationCitizen
	if departmentID.Valid {
		actor.DepartmentID = departmentID.Int64
	}
	if roleID.Valid {
		actor.RoleID = roleID.Int64
	}
	if roleName.Valid {
		actor.RoleName = roleName.String
	}
	if classification.Valid {
		cls, err := models.ParseClassification(classification.String)
		if err != nil {
			return nil, fmt.Errorf("user %d carries an invalid classification: %w", userID, err)
		}
		actor.Classification = cls
	}
	return actor, nil
}

// LoadCategoryRoles loads the admin-maintained category routing table.
func (s *ReportService) LoadCategoryRoles(ctx context.Context) (map[models.Category]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, role_id FROM category_roles`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category roles: %w", err)
	}
	defer rows.Close()

	mapping := map[models.Category]int64{}
	for rows.Next() {
		var category string
		var roleID int64
		if err := rows.Scan(&category, &roleID); err != nil {
			return nil, fmt.Errorf("failed to scan category role row: %w", err)
		}
		mapping[models.Category(category)] = roleID
	}
	return mapping, rows.Err()
}

// UpsertCategoryRole writes one category routing entry, last write wins.
func (s *ReportService) UpsertCategoryRole(ctx context.Context, category models.Category, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_roles (category, role_id) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE role_id = ?`,
		string(category), roleID, roleID)
	if err != nil {
		return fmt.Errorf("failed to upsert category role %s: %w", category, err)
	}
	return nil
}

// InsertAuditEntry appends one status mutation to the audit trail.
func (s *ReportService) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_audit (report_id, actor_id, from_status, to_status, reason)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ReportID, entry.ActorID, string(entry.FromStatus), string(entry.ToStatus), entry.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry for report %d: %w", entry.ReportID, err)
	}
	log.Debugf("Audit: report %d %s -> %s by %d", entry.ReportID, entry.FromStatus, entry.ToStatus, entry.ActorID)
	return nil
}
