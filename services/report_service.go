package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"participium/models"
)

// ReportStore is the persistence surface the lifecycle consumes. The
// concrete implementation lives in the database package.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	// UpdateReportStatus persists status, assignee and rejection reason,
	// conditioned on the status being unchanged since it was read. Returns
	// models.ErrConflict when the condition fails.
	UpdateReportStatus(ctx context.Context, report *models.Report, expectedPrior models.ReportStatus) error
	ListStaffByPosition(ctx context.Context, pos models.Position) ([]int64, error)
	CountActiveReportsByAssignee(ctx context.Context, pos models.Position) (map[int64]int, error)
	GetPositionForRole(ctx context.Context, roleID int64) (models.Position, error)
	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

// Notifier hands notification requests to the notification exchange.
// Delivery is the collaborator's concern; the lifecycle never waits on it.
type Notifier interface {
	Enqueue(userID int64, content string, reportID *int64) error
}

// LifecycleService is the facade over the status state machine, the
// authorization matrix and the assignment engine. All report mutations go
// through it.
type LifecycleService struct {
	store      ReportStore
	boundary   *Boundary
	router     *CategoryRouter
	notifier   Notifier
	retryDelay time.Duration

	// One mutex per (department, role) position serializes the caseload
	// read against the assignee write, so two concurrent first assignments
	// for the same position cannot both pick the same least-loaded member.
	locksMutex    sync.Mutex
	positionLocks map[models.Position]*sync.Mutex
}

// NewLifecycleService wires the lifecycle facade. retryDelay is the pause
// before the single internal retry of a conflicting status write.
func NewLifecycleService(store ReportStore, boundary *Boundary, router *CategoryRouter, notifier Notifier, retryDelay time.Duration) *LifecycleService {
	return &LifecycleService{
		store:         store,
		boundary:      boundary,
		router:        router,
		notifier:      notifier,
		retryDelay:    retryDelay,
		positionLocks: make(map[models.Position]*sync.Mutex),
	}
}

// CreateReport validates the location against the municipal boundary and
// persists the report in PENDING_APPROVAL. No staff is assigned at creation
// time; assignment happens only on the explicit transition to ASSIGNED, so a
// reviewer can reject before any staff time is allocated.
func (s *LifecycleService) CreateReport(ctx context.Context, req *models.CreateReportRequest, reporterID *int64) (*models.Report, error) {
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	if err := s.boundary.Validate(req.Latitude, req.Longitude); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	report := &models.Report{
		ReporterID:  reporterID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IsAnonymous: req.IsAnonymous,
		Status:      models.StatusPendingApproval,
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	log.Infof("Created report %d in %s at (%f, %f)", report.ID, report.Status, report.Latitude, report.Longitude)
	return report, nil
}

// ChangeStatus runs one authorized status transition. The write is
// conditioned on the status read at the start of the attempt; a conflicting
// concurrent write triggers exactly one internal retry with re-read state
// before ErrConflict is surfaced.
func (s *LifecycleService) ChangeStatus(ctx context.Context, reportID int64, requested models.ReportStatus, actorID int64, cls models.Classification, reason string) (*models.Report, error) {
	if _, err := models.ParseReportStatus(string(requested)); err != nil {
		return nil, err
	}

	report, err := s.changeStatusOnce(ctx, reportID, requested, actorID, cls, reason)
	if errors.Is(err, models.ErrConflict) {
		log.Warnf("Concurrent modification of report %d, retrying transition to %s", reportID, requested)
		time.Sleep(s.retryDelay)
		report, err = s.changeStatusOnce(ctx, reportID, requested, actorID, cls, reason)
	}
	return report, err
}

func (s *LifecycleService) changeStatusOnce(ctx context.Context, reportID int64, requested models.ReportStatus, actorID int64, cls models.Classification, reason string) (*models.Report, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	// A repeated request for the already-reached status is a no-op, never a
	// duplicate notification.
	if report.Status == requested {
		return report, nil
	}

	if !CanTransition(report.Status, requested, cls) {
		return nil, fmt.Errorf("%w: %s may not move a report from %s to %s",
			models.ErrInsufficientRights, cls, report.Status, requested)
	}

	prior := report.Status
	var priorAssignee *int64
	if report.AssigneeID != nil {
		id := *report.AssigneeID
		priorAssignee = &id
	}

	unlock := func() {}
	switch requested {
	case models.StatusRejected:
		if strings.TrimSpace(reason) == "" {
			return nil, fmt.Errorf("%w: rejection requires a reason", models.ErrValidation)
		}
		report.RejectionReason = &reason
		report.AssigneeID = nil

	case models.StatusAssigned:
		if report.AssigneeID == nil {
			assigneeID, release, err := s.pickAssignee(ctx, report.Category)
			if err != nil {
				return nil, err
			}
			// Hold the position lock until the assignee write lands, so the
			// next assignment for this position sees it.
			unlock = release
			report.AssigneeID = &assigneeID
		}
	}
	defer unlock()

	report.Status = requested
	if err := s.store.UpdateReportStatus(ctx, report, prior); err != nil {
		return nil, err
	}

	s.audit(ctx, report, actorID, prior, requested, reason)
	s.notifyTransition(report, actorID, prior, priorAssignee, reason)

	log.Infof("Report %d moved %s -> %s by actor %d", report.ID, prior, requested, actorID)
	return report, nil
}

// pickAssignee resolves the responsible position for a category and selects
// its least-loaded staff member. The returned release function unlocks the
// position; callers hold it across the status write.
func (s *LifecycleService) pickAssignee(ctx context.Context, category models.Category) (int64, func(), error) {
	roleID, err := s.router.ResolveRole(category)
	if err != nil {
		return 0, nil, err
	}

	pos, err := s.store.GetPositionForRole(ctx, roleID)
	if err != nil {
		return 0, nil, err
	}

	lock := s.positionLock(pos)
	lock.Lock()

	staff, err := s.store.ListStaffByPosition(ctx, pos)
	if err != nil {
		lock.Unlock()
		return 0, nil, fmt.Errorf("failed to list staff for position %v: %w", pos, err)
	}

	caseloads, err := s.store.CountActiveReportsByAssignee(ctx, pos)
	if err != nil {
		lock.Unlock()
		return 0, nil, fmt.Errorf("failed to count caseloads for position %v: %w", pos, err)
	}

	assigneeID, err := PickLeastLoaded(staff, caseloads)
	if err != nil {
		lock.Unlock()
		return 0, nil, err
	}

	return assigneeID, lock.Unlock, nil
}

func (s *LifecycleService) positionLock(pos models.Position) *sync.Mutex {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	lock, ok := s.positionLocks[pos]
	if !ok {
		lock = &sync.Mutex{}
		s.positionLocks[pos] = lock
	}
	return lock
}

// audit records the mutation for the audit trail. The transition is already
// committed; an audit failure is logged, never rolled back into the caller.
func (s *LifecycleService) audit(ctx context.Context, report *models.Report, actorID int64, from, to models.ReportStatus, reason string) {
	entry := &models.AuditEntry{
		ReportID:   report.ID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		log.Errorf("Failed to write audit entry for report %d: %v", report.ID, err)
	}
}

// notifyTransition emits one notification to the reporter (skipped when
// anonymous) and one to the new or old assignee as applicable. Emission is
// best effort; the committed transition is the source of truth.
func (s *LifecycleService) notifyTransition(report *models.Report, actorID int64, prior models.ReportStatus, priorAssignee *int64, reason string) {
	if report.ReporterID != nil && !report.IsAnonymous {
		content := fmt.Sprintf("Your report %q is now %s", report.Title, report.Status)
		if report.Status == models.StatusRejected {
			content = fmt.Sprintf("Your report %q was rejected: %s", report.Title, reason)
		}
		s.enqueue(*report.ReporterID, content, report.ID)
	}

	switch {
	case report.Status == models.StatusAssigned && report.AssigneeID != nil:
		s.enqueue(*report.AssigneeID, fmt.Sprintf("Report %q has been assigned to you", report.Title), report.ID)
	case report.Status == models.StatusRejected && priorAssignee != nil:
		s.enqueue(*priorAssignee, fmt.Sprintf("Report %q was rejected and removed from your caseload", report.Title), report.ID)
	case report.AssigneeID != nil && *report.AssigneeID != actorID:
		s.enqueue(*report.AssigneeID, fmt.Sprintf("Report %q moved from %s to %s", report.Title, prior, report.Status), report.ID)
	}
}

func (s *LifecycleService) enqueue(userID int64, content string, reportID int64) {
	id := reportID
	if err := s.notifier.Enqueue(userID, content, &id); err != nil {
		log.Errorf("Failed to enqueue notification for user %d: %v", userID, err)
	}
}
