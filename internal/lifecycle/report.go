package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labang-online/portal/internal/models"
)

const (
	MinLocationLength    = 5
	MinDescriptionLength = 20
)

var (
	ErrInvalidReport       = errors.New("invalid incident report")
	ErrInvalidReportStatus = errors.New("status must be Pending, Under Investigation, Mediation Scheduled or Resolved")
)

// ReportInput carries the resident-supplied fields of a new incident report.
type ReportInput struct {
	Type        models.IncidentType
	Location    string
	Description string
}

// NewIncidentReport validates input and builds a pending report.
// The report identifier is assigned by the caller.
func NewIncidentReport(accountID int64, in ReportInput, now time.Time) (models.IncidentReport, error) {
	if !in.Type.Valid() {
		return models.IncidentReport{}, fmt.Errorf("%w: unknown incident type %q", ErrInvalidReport, in.Type)
	}
	location := strings.TrimSpace(in.Location)
	if len([]rune(location)) < MinLocationLength {
		return models.IncidentReport{}, fmt.Errorf("%w: location must be at least %d characters", ErrInvalidReport, MinLocationLength)
	}
	description := strings.TrimSpace(in.Description)
	if len([]rune(description)) < MinDescriptionLength {
		return models.IncidentReport{}, fmt.Errorf("%w: description must be at least %d characters", ErrInvalidReport, MinDescriptionLength)
	}

	return models.IncidentReport{
		AccountID:    accountID,
		IncidentType: in.Type,
		Location:     location,
		Description:  description,
		Status:       models.ReportPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetReportStatus assigns any of the four statuses.
func SetReportStatus(r models.IncidentReport, status models.ReportStatus, now time.Time) (models.IncidentReport, error) {
	if !status.Valid() {
		return r, ErrInvalidReportStatus
	}
	r.Status = status
	r.UpdatedAt = now
	return r, nil
}
