package models

import (
	"fmt"
	"time"
)

// ReportStatus is the lifecycle status of a report.
type ReportStatus string

const (
	StatusPendingApproval ReportStatus = "PENDING_APPROVAL"
	StatusAssigned        ReportStatus = "ASSIGNED"
	StatusInProgress      ReportStatus = "IN_PROGRESS"
	StatusSuspended       ReportStatus = "SUSPENDED"
	StatusRejected        ReportStatus = "REJECTED"
	StatusResolved        ReportStatus = "RESOLVED"
)

// AllStatuses lists every valid report status.
var AllStatuses = []ReportStatus{
	StatusPendingApproval,
	StatusAssigned,
	StatusInProgress,
	StatusSuspended,
	StatusRejected,
	StatusResolved,
}

// ParseReportStatus validates a status string coming from the API.
func ParseReportStatus(s string) (ReportStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown report status %q", ErrValidation, s)
}

// IsTerminal reports whether no outgoing transition exists from the status.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusResolved
}

// IsActive reports whether a report in this status counts against the
// assignee's caseload.
func (s ReportStatus) IsActive() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusSuspended
}

// RequiresAssignee reports whether the status must carry a non-null assignee.
// RESOLVED retains the last assignee for history.
func (s ReportStatus) RequiresAssignee() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusSuspended || s == StatusResolved
}

// Category is the fixed enumeration of report categories.
type Category string

const (
	CategoryWaterSupply           Category = "WATER_SUPPLY"
	CategoryArchitecturalBarriers Category = "ARCHITECTURAL_BARRIERS"
	CategorySewerSystem           Category = "SEWER_SYSTEM"
	CategoryPublicLighting        Category = "PUBLIC_LIGHTING"
	CategoryWaste                 Category = "WASTE"
	CategoryRoadSigns             Category = "ROAD_SIGNS"
	CategoryRoads                 Category = "ROADS_AND_URBAN_FURNISHINGS"
	CategoryGreenAreas            Category = "PUBLIC_GREEN_AREAS"
	CategoryOther                 Category = "OTHER"
)

// AllCategories lists every valid report category.
var AllCategories = []Category{
	CategoryWaterSupply,
	CategoryArchitecturalBarriers,
	CategorySewerSystem,
	CategoryPublicLighting,
	CategoryWaste,
	CategoryRoadSigns,
	CategoryRoads,
	CategoryGreenAreas,
	CategoryOther,
}

// ParseCategory validates a category string coming from the API.
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

// Classification is the coarse actor category the transition table is keyed
// on, independent of the literal role name.
type Classification string

const (
	ClassificationCitizen            Classification = "CITIZEN"
	ClassificationPROfficer          Classification = "PUBLIC_RELATIONS_OFFICER"
	ClassificationTechnicalStaff     Classification = "TECHNICAL_STAFF"
	ClassificationExternalMaintainer Classification = "EXTERNAL_MAINTAINER"
	ClassificationAdministrator      Classification = "ADMINISTRATOR"
)

// AllClassifications lists every valid actor classification.
var AllClassifications = []Classification{
	ClassificationCitizen,
	ClassificationPROfficer,
	ClassificationTechnicalStaff,
	ClassificationExternalMaintainer,
	ClassificationAdministrator,
}

// ParseClassification validates a classification string.
func ParseClassification(s string) (Classification, error) {
	for _, c := range AllClassifications {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown classification %q", ErrValidation, s)
}

// Position is a concrete (department, role) pair a staff user holds. It is
// the unit assignment balances load over; a role name alone is ambiguous
// because two departments may share it.
type Position struct {
	DepartmentID int64 `json:"department_id"`
	RoleID       int64 `json:"role_id"`
}

// Actor is a user resolved to an organizational position and classification.
type Actor struct {
	UserID         int64          `json:"user_id"`
	DepartmentID   int64          `json:"department_id"`
	RoleID         int64          `json:"role_id"`
	RoleName       string         `json:"role_name"`
	Classification Classification `json:"classification"`
}

// Position returns the actor's (department, role) pair.
func (a *Actor) Position() Position {
	return Position{DepartmentID: a.DepartmentID, RoleID: a.RoleID}
}

// Report is the unit of work routed through the lifecycle.
type Report struct {
	ID              int64        `json:"id"`
	ReporterID      *int64       `json:"reporter_id,omitempty"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Category        Category     `json:"category"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	IsAnonymous     bool         `json:"is_anonymous"`
	Status          ReportStatus `json:"status"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	AssigneeID      *int64       `json:"assignee_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Anonymized returns a copy safe for outward-facing views: the reporter
// identity is withheld for anonymous reports, not deleted from storage.
func (r *Report) Anonymized() *Report {
	if !r.IsAnonymous {
		return r
	}
	out := *r
	out.ReporterID = nil
	return &out
}

// AuditEntry records one status mutation for the audit trail.
type AuditEntry struct {
	ReportID   int64        `json:"report_id"`
	ActorID    int64        `json:"actor_id"`
	FromStatus ReportStatus `json:"from_status"`
	ToStatus   ReportStatus `json:"to_status"`
	Reason     string       `json:"reason,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Notification is the message handed to the notification exchange. Delivery
// is the consumer's concern.
type Notification struct {
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	ReportID  *int64    `json:"report_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateReportRequest is the payload for report creation.
type CreateReportRequest struct {
	Version     string  `json:"version"` // Must be "2.0"
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	IsAnonymous bool    `json:"is_anonymous"`
}

// ChangeStatusRequest is the payload for a status transition.
type ChangeStatusRequest struct {
	Version  string `json:"version"` // Must be "2.0"
	ReportID int64  `json:"report_id"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// MapCategoryRoleRequest is the admin payload updating the category routing
// table. Last write wins.
type MapCategoryRoleRequest struct {
	Version  string `json:"version"` // Must be "2.0"
	Category string `json:"category"`
	RoleID   int64  `json:"role_id"`
}

// ReportResponse wraps a single report.
type ReportResponse struct {
	Report *Report `json:"report"`
}

// ReportsResponse wraps a report listing.
type ReportsResponse struct {
	Reports []*Report `json:"reports"`
}
