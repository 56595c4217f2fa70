package services

import (
	"participium/models"
)

// transitionEdge is one (from, to) edge of the status state machine.
type transitionEdge struct {
	from models.ReportStatus
	to   models.ReportStatus
}

// transitionTable holds, per edge, the actor classifications allowed to take
// it. Any (from, to) pair absent from the table is denied for every
// classification; citizens and administrators never gain an edge.
var transitionTable = map[transitionEdge][]models.Classification{
	{models.StatusPendingApproval, models.StatusAssigned}: {
		models.ClassificationPROfficer,
		models.ClassificationExternalMaintainer,
	},
	{models.StatusPendingApproval, models.StatusRejected}: {
		models.ClassificationPROfficer,
	},
	{models.StatusAssigned, models.StatusInProgress}: {
		models.ClassificationTechnicalStaff,
	},
	{models.StatusAssigned, models.StatusSuspended}: {
		models.ClassificationTechnicalStaff,
	},
	{models.StatusAssigned, models.StatusResolved}: {
		models.ClassificationTechnicalStaff,
		models.ClassificationExternalMaintainer,
	},
	{models.StatusAssigned, models.StatusRejected}: {
		models.ClassificationPROfficer,
	},
	{models.StatusInProgress, models.StatusSuspended}: {
		models.ClassificationTechnicalStaff,
	},
	{models.StatusInProgress, models.StatusResolved}: {
		models.ClassificationTechnicalStaff,
		models.ClassificationExternalMaintainer,
	},
	{models.StatusInProgress, models.StatusRejected}: {
		models.ClassificationPROfficer,
	},
	{models.StatusSuspended, models.StatusInProgress}: {
		models.ClassificationTechnicalStaff,
	},
	{models.StatusSuspended, models.StatusResolved}: {
		models.ClassificationTechnicalStaff,
		models.ClassificationExternalMaintainer,
	},
	{models.StatusSuspended, models.StatusRejected}: {
		models.ClassificationPROfficer,
	},
}

// CanTransition answers whether the actor classification may move a report
// from one status to another. Pure table lookup, no I/O, deny by default.
func CanTransition(from, to models.ReportStatus, cls models.Classification) bool {
	allowed, ok := transitionTable[transitionEdge{from, to}]
	if !ok {
		return false
	}
	for _, c := range allowed {
		if c == cls {
			return true
		}
	}
	return false
}
