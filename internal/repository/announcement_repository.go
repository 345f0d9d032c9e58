package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/models"
)

// AnnouncementRepository defines data access for announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, id int64) (*models.Announcement, error)

	// Update writes title, body, type and active flag. Returns false when
	// the announcement does not exist.
	Update(ctx context.Context, a *models.Announcement) (bool, error)

	// Toggle flips is_active and returns the updated row, or nil.
	Toggle(ctx context.Context, id int64) (*models.Announcement, error)
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns announcements newest first. activeOnly hides inactive ones.
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Announcement, int, error)

	// CountActiveSince counts active announcements created after since.
	// A nil since counts every active announcement.
	CountActiveSince(ctx context.Context, since *time.Time) (int, error)
}

type announcementRepository struct {
	db *database.Database
}

// NewAnnouncementRepository creates a new instance of AnnouncementRepository.
func NewAnnouncementRepository(db *database.Database) AnnouncementRepository {
	return &announcementRepository{db: db}
}

const announcementColumns = `id, title, body, announcement_type, is_active, author_id, created_at, updated_at`

func scanAnnouncement(row pgx.Row) (*models.Announcement, error) {
	var a models.Announcement
	if err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Type, &a.IsActive, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *announcementRepository) Create(ctx context.Context, a *models.Announcement) error {
	query := `
		INSERT INTO announcements (title, body, announcement_type, is_active, author_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	if err := r.db.Pool.QueryRow(ctx, query, a.Title, a.Body, a.Type, a.IsActive, a.AuthorID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert announcement: %w", err)
	}
	return nil
}

func (r *announcementRepository) FindByID(ctx context.Context, id int64) (*models.Announcement, error) {
	a, err := scanAnnouncement(r.db.Pool.QueryRow(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query announcement %d: %w", id, err)
	}
	return a, nil
}

func (r *announcementRepository) Update(ctx context.Context, a *models.Announcement) (bool, error) {
	query := `
		UPDATE announcements
		SET title = $2, body = $3, announcement_type = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.Pool.QueryRow(ctx, query, a.ID, a.Title, a.Body, a.Type, a.IsActive).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update announcement %d: %w", a.ID, err)
	}
	return true, nil
}

func (r *announcementRepository) Toggle(ctx context.Context, id int64) (*models.Announcement, error) {
	a, err := scanAnnouncement(r.db.Pool.QueryRow(ctx,
		`UPDATE announcements SET is_active = NOT is_active, updated_at = NOW() WHERE id = $1 RETURNING `+announcementColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to toggle announcement %d: %w", id, err)
	}
	return a, nil
}

func (r *announcementRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete announcement %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *announcementRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Announcement, int, error) {
	var where whereClause
	if activeOnly {
		where.add("is_active = ?", true)
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM announcements`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count announcements: %w", err)
	}

	limitClause, args := where.page(limit, offset)
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+announcementColumns+` FROM announcements`+where.String()+` ORDER BY created_at DESC, id DESC`+limitClause,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	announcements := []models.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating announcements: %w", err)
	}
	return announcements, total, nil
}

func (r *announcementRepository) CountActiveSince(ctx context.Context, since *time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM announcements WHERE is_active = TRUE AND ($1::timestamptz IS NULL OR created_at > $1)`,
		since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread announcements: %w", err)
	}
	return count, nil
}
