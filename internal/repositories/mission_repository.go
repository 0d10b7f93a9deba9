package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ecomission/internal/database"
	"ecomission/internal/models"

	"go.uber.org/zap"
)

type missionRepository struct {
	*BaseRepository
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db *database.Manager, logger *zap.Logger) MissionRepository {
	return &missionRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const missionColumns = `
	m.id, m.template_id, m.title, m.content, m.point_value, m.kind,
	m.start_date, m.deadline, m.icon_url, m.banner_url, m.category,
	m.status, m.participation_count, m.created_at, m.updated_at`

// Create inserts a mission and fills in its id and timestamps
func (r *missionRepository) Create(ctx context.Context, mission *models.Mission) error {
	query := `
		INSERT INTO missions (
			template_id, title, content, point_value, kind, start_date, deadline,
			icon_url, banner_url, category, status, participation_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(ctx, query,
		mission.TemplateID, mission.Title, mission.Content, mission.PointValue,
		mission.Kind, mission.StartDate, mission.Deadline, mission.IconURL,
		mission.BannerURL, mission.Category, mission.Status,
	).Scan(&mission.ID, &mission.CreatedAt, &mission.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_missions_template_day") {
			return fmt.Errorf("mission for template on %s: %w", mission.StartDate.Format(time.DateOnly), ErrUniqueViolation)
		}
		r.GetLogger().Error("Failed to create mission", zap.Error(err), zap.String("title", mission.Title))
		return fmt.Errorf("failed to create mission: %w", err)
	}

	mission.ParticipationCount = 0
	return nil
}

// GetByID retrieves a mission by ID
func (r *missionRepository) GetByID(ctx context.Context, id int64) (*models.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions m WHERE m.id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a mission and locks its row
func (r *missionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions m WHERE m.id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *missionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Mission, error) {
	mission, err := scanMission(r.QueryRowContext(ctx, query, args...))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return mission, nil
}

// ExistsForTemplateOn checks whether a template already produced a mission for day
func (r *missionRepository) ExistsForTemplateOn(ctx context.Context, templateID int64, day time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM missions WHERE template_id = $1 AND start_date = $2)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, templateID, models.DateOf(day)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check template mission: %w", err)
	}
	return exists, nil
}

// IncrementParticipationCount adds one to the mission's counter
func (r *missionRepository) IncrementParticipationCount(ctx context.Context, id int64) error {
	query := `
		UPDATE missions
		SET participation_count = participation_count + 1, updated_at = NOW()
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment participation count: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionStatus performs a conditional status update
func (r *missionRepository) TransitionStatus(ctx context.Context, id int64, from, to models.MissionStatus) (bool, error) {
	query := `
		UPDATE missions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`

	result, err := r.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update mission status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// ListByStatusAndKind lists missions of one kind in one status, newest first
func (r *missionRepository) ListByStatusAndKind(ctx context.Context, status models.MissionStatus, kind models.MissionKind) ([]*models.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions m
		WHERE m.status = $1 AND m.kind = $2
		ORDER BY m.deadline ASC, m.id DESC`
	return r.list(ctx, query, status, kind)
}

// ListOpenDueBy lists open missions whose deadline is on or before day
func (r *missionRepository) ListOpenDueBy(ctx context.Context, day time.Time) ([]*models.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions m
		WHERE m.status = $1 AND m.deadline <= $2
		ORDER BY m.id`
	return r.list(ctx, query, models.MissionStatusOpen, models.DateOf(day))
}

// ListClosedScheduledStartingOn lists closed scheduled missions starting on day
func (r *missionRepository) ListClosedScheduledStartingOn(ctx context.Context, day time.Time) ([]*models.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions m
		WHERE m.status = $1 AND m.kind = $2 AND m.start_date = $3
		ORDER BY m.id`
	return r.list(ctx, query, models.MissionStatusClosed, models.MissionKindScheduled, models.DateOf(day))
}

// ListOpenByDeadline lists running missions, nearest deadline first
func (r *missionRepository) ListOpenByDeadline(ctx context.Context) ([]*models.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions m
		WHERE m.status = $1
		ORDER BY m.deadline ASC, m.id ASC`
	return r.list(ctx, query, models.MissionStatusOpen)
}

// ListTerminated lists closed missions past their deadline with no pending review left
func (r *missionRepository) ListTerminated(ctx context.Context, today time.Time) ([]*models.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions m
		WHERE m.status = $1
		  AND m.deadline < $2
		  AND NOT EXISTS (
			SELECT 1 FROM participations p
			WHERE p.mission_id = m.id AND p.status = $3
		  )
		ORDER BY m.deadline DESC, m.id DESC`
	return r.list(ctx, query, models.MissionStatusClosed, models.DateOf(today), models.ParticipationPending)
}

// ListWithPendingParticipations lists missions that have submissions awaiting review
func (r *missionRepository) ListWithPendingParticipations(ctx context.Context) ([]*models.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions m
		WHERE EXISTS (
			SELECT 1 FROM participations p
			WHERE p.mission_id = m.id AND p.status = $1
		)
		ORDER BY m.deadline ASC, m.id ASC`
	return r.list(ctx, query, models.ParticipationPending)
}

func (r *missionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Mission, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*models.Mission
	for rows.Next() {
		mission, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, mission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missions: %w", err)
	}
	return missions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMission(row rowScanner) (*models.Mission, error) {
	var mission models.Mission
	var templateID sql.NullInt64

	err := row.Scan(
		&mission.ID, &templateID, &mission.Title, &mission.Content, &mission.PointValue,
		&mission.Kind, &mission.StartDate, &mission.Deadline, &mission.IconURL,
		&mission.BannerURL, &mission.Category, &mission.Status,
		&mission.ParticipationCount, &mission.CreatedAt, &mission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if templateID.Valid {
		mission.TemplateID = &templateID.Int64
	}
	mission.StartDate = models.DateOf(mission.StartDate)
	mission.Deadline = models.DateOf(mission.Deadline)
	return &mission, nil
}
