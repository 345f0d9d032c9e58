package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/models"
)

// ReportRepository defines data access for incident reports.
type ReportRepository interface {
	// Insert stores a new report. A taken report ID is reported as
	// identifier.ErrCollision.
	Insert(ctx context.Context, report *models.IncidentReport) error
	FindByReportID(ctx context.Context, reportID string) (*models.IncidentReport, error)

	// UpdateStatus returns the updated report, or nil when it does not exist.
	UpdateStatus(ctx context.Context, reportID string, status models.ReportStatus, at time.Time) (*models.IncidentReport, error)
	Delete(ctx context.Context, reportID string) (bool, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.IncidentReport, int, error)
}

type reportRepository struct {
	db *database.Database
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *database.Database) ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = `id, report_id, account_id, incident_type, location, description, status, created_at, updated_at`

func scanReport(row pgx.Row) (*models.IncidentReport, error) {
	var r models.IncidentReport
	err := row.Scan(
		&r.ID,
		&r.ReportID,
		&r.AccountID,
		&r.IncidentType,
		&r.Location,
		&r.Description,
		&r.Status,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *reportRepository) Insert(ctx context.Context, report *models.IncidentReport) error {
	query := `
		INSERT INTO incident_reports (report_id, account_id, incident_type, location, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		report.ReportID, report.AccountID, report.IncidentType, report.Location,
		report.Description, report.Status, report.CreatedAt, report.UpdatedAt,
	).Scan(&report.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "incident_reports_report_id_key") {
			return fmt.Errorf("report id %s: %w", report.ReportID, identifier.ErrCollision)
		}
		return fmt.Errorf("failed to insert incident report %s: %w", report.ReportID, err)
	}
	return nil
}

func (r *reportRepository) FindByReportID(ctx context.Context, reportID string) (*models.IncidentReport, error) {
	report, err := scanReport(r.db.Pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM incident_reports WHERE report_id = $1`, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query incident report %s: %w", reportID, err)
	}
	return report, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, reportID string, status models.ReportStatus, at time.Time) (*models.IncidentReport, error) {
	query := `UPDATE incident_reports SET status = $2, updated_at = $3 WHERE report_id = $1 RETURNING ` + reportColumns
	report, err := scanReport(r.db.Pool.QueryRow(ctx, query, reportID, status, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update incident report %s: %w", reportID, err)
	}
	return report, nil
}

func (r *reportRepository) Delete(ctx context.Context, reportID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM incident_reports WHERE report_id = $1`, reportID)
	if err != nil {
		return false, fmt.Errorf("failed to delete incident report %s: %w", reportID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *reportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.IncidentReport, int, error) {
	var where whereClause
	if filter.AccountID != nil {
		where.add("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		where.add("status = ?", *filter.Status)
	}
	if filter.IncidentType != nil {
		where.add("incident_type = ?", *filter.IncidentType)
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM incident_reports`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count incident reports: %w", err)
	}

	limitClause, args := where.page(filter.Limit, filter.Offset)
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reportColumns+` FROM incident_reports`+where.String()+` ORDER BY created_at DESC, id DESC`+limitClause,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incident reports: %w", err)
	}
	defer rows.Close()

	reports := []models.IncidentReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan incident report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating incident reports: %w", err)
	}
	return reports, total, nil
}
