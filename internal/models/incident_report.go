package models

import "time"

// IncidentType classifies a resident-filed complaint.
type IncidentType string

const (
	IncidentTheft       IncidentType = "Theft"
	IncidentAssault     IncidentType = "Assault"
	IncidentVandalism   IncidentType = "Vandalism"
	IncidentDisturbance IncidentType = "Disturbance"
	IncidentOther       IncidentType = "Other"
)

// Valid reports whether t is one of the five incident types.
func (t IncidentType) Valid() bool {
	switch t {
	case IncidentTheft, IncidentAssault, IncidentVandalism, IncidentDisturbance, IncidentOther:
		return true
	}
	return false
}

// ReportStatus is the staff-driven status of an incident report.
// Any move among the four values is allowed.
type ReportStatus string

const (
	ReportPending            ReportStatus = "Pending"
	ReportUnderInvestigation ReportStatus = "Under Investigation"
	ReportMediationScheduled ReportStatus = "Mediation Scheduled"
	ReportResolved           ReportStatus = "Resolved"
)

// Valid reports whether s is one of the four report statuses.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportUnderInvestigation, ReportMediationScheduled, ReportResolved:
		return true
	}
	return false
}

// IncidentReport is a complaint filed by a resident.
type IncidentReport struct {
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	ReportID     string       `db:"report_id" json:"report_id"`
	IncidentType IncidentType `db:"incident_type" json:"incident_type"`
	Location     string       `db:"location" json:"location"`
	Description  string       `db:"description" json:"description"`
	Status       ReportStatus `db:"status" json:"status"`
	ID           int64        `db:"id" json:"-"`
	AccountID    int64        `db:"account_id" json:"account_id"`
}

// ReportFilter narrows incident report listings.
type ReportFilter struct {
	AccountID    *int64
	Status       *ReportStatus
	IncidentType *IncidentType
	Limit        int
	Offset       int
}
