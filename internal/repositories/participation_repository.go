package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ecomission/internal/database"
	"ecomission/internal/models"

	"go.uber.org/zap"
)

type participationRepository struct {
	*BaseRepository
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *database.Manager, logger *zap.Logger) ParticipationRepository {
	return &participationRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const participationColumns = `
	p.id, p.mission_id, p.user_id, p.status, p.artifact_key, p.created_at, p.reviewed_at,
	m.title, m.point_value, m.category, m.icon_url, m.kind`

// Create inserts a participation
func (r *participationRepository) Create(ctx context.Context, p *models.Participation) error {
	query := `
		INSERT INTO participations (mission_id, user_id, status, artifact_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query, p.MissionID, p.UserID, p.Status, p.ArtifactKey).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "participations_mission_user_key") {
			return fmt.Errorf("participation for mission %d user %d: %w", p.MissionID, p.UserID, ErrUniqueViolation)
		}
		r.GetLogger().Error("Failed to create participation",
			zap.Error(err),
			zap.Int64("mission_id", p.MissionID),
			zap.Int64("user_id", p.UserID),
		)
		return fmt.Errorf("failed to create participation: %w", err)
	}
	return nil
}

// GetByID retrieves a participation with its mission summary
func (r *participationRepository) GetByID(ctx context.Context, id int64) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + `
		FROM participations p
		JOIN missions m ON m.id = p.mission_id
		WHERE p.id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a participation and locks its row
func (r *participationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + `
		FROM participations p
		JOIN missions m ON m.id = p.mission_id
		WHERE p.id = $1
		FOR UPDATE OF p`
	return r.getOne(ctx, query, id)
}

func (r *participationRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Participation, error) {
	p, err := scanParticipation(r.QueryRowContext(ctx, query, args...))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}
	return p, nil
}

// ExistsForUser checks if the user already submitted to the mission
func (r *participationRepository) ExistsForUser(ctx context.Context, missionID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM participations WHERE mission_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, missionID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check participation: %w", err)
	}
	return exists, nil
}

// UpdateStatus records the review outcome
func (r *participationRepository) UpdateStatus(ctx context.Context, id int64, status models.ParticipationStatus, reviewedAt time.Time) error {
	query := `UPDATE participations SET status = $2, reviewed_at = $3 WHERE id = $1`

	result, err := r.ExecContext(ctx, query, id, status, reviewedAt)
	if err != nil {
		return fmt.Errorf("failed to update participation status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetArtifactKey attaches the uploaded proof to the participation
func (r *participationRepository) SetArtifactKey(ctx context.Context, id int64, key string) error {
	query := `UPDATE participations SET artifact_key = $2 WHERE id = $1`

	if _, err := r.ExecContext(ctx, query, id, key); err != nil {
		return fmt.Errorf("failed to set artifact key: %w", err)
	}
	return nil
}

// ListByUserAndStatus lists a user's participations, newest first
func (r *participationRepository) ListByUserAndStatus(ctx context.Context, userID int64, statuses ...models.ParticipationStatus) ([]*models.Participation, error) {
	args := []interface{}{userID}
	placeholders := make([]string, len(statuses))
	for i, s := range statuses {
		args = append(args, s)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}

	query := `SELECT ` + participationColumns + `
		FROM participations p
		JOIN missions m ON m.id = p.mission_id
		WHERE p.user_id = $1`
	if len(statuses) > 0 {
		query += ` AND p.status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	return r.list(ctx, query, args...)
}

// ListPendingByMission lists submissions awaiting review, oldest first
func (r *participationRepository) ListPendingByMission(ctx context.Context, missionID int64) ([]*models.Participation, error) {
	query := `SELECT ` + participationColumns + `
		FROM participations p
		JOIN missions m ON m.id = p.mission_id
		WHERE p.mission_id = $1 AND p.status = $2
		ORDER BY p.created_at ASC, p.id ASC`
	return r.list(ctx, query, missionID, models.ParticipationPending)
}

// CountByMission counts participations referencing the mission
func (r *participationRepository) CountByMission(ctx context.Context, missionID int64) (int, error) {
	var count int
	err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM participations WHERE mission_id = $1`, missionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participations: %w", err)
	}
	return count, nil
}

func (r *participationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Participation, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	defer rows.Close()

	var participations []*models.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}
	return participations, nil
}

func scanParticipation(row rowScanner) (*models.Participation, error) {
	var p models.Participation
	var artifactKey sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.MissionID, &p.UserID, &p.Status, &artifactKey, &p.CreatedAt, &reviewedAt,
		&p.MissionTitle, &p.MissionPoint, &p.MissionCategory, &p.MissionIconURL, &p.MissionKind,
	)
	if err != nil {
		return nil, err
	}

	if artifactKey.Valid {
		p.ArtifactKey = &artifactKey.String
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	return &p, nil
}
