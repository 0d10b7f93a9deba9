package repositories

import (
	"context"
	"time"

	"ecomission/internal/models"
)

// Transactor runs a unit of work. Repository calls made with the context
// passed to fn share one database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TemplateRepository persists mission templates
type TemplateRepository interface {
	Create(ctx context.Context, tpl *models.MissionTemplate) error
	GetByID(ctx context.Context, id int64) (*models.MissionTemplate, error)
	List(ctx context.Context) ([]*models.MissionTemplate, error)
}

// MissionRepository persists missions
type MissionRepository interface {
	Create(ctx context.Context, mission *models.Mission) error
	GetByID(ctx context.Context, id int64) (*models.Mission, error)

	// GetByIDForUpdate locks the mission row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Mission, error)

	// ExistsForTemplateOn reports whether the template already produced a mission for day
	ExistsForTemplateOn(ctx context.Context, templateID int64, day time.Time) (bool, error)

	IncrementParticipationCount(ctx context.Context, id int64) error

	// TransitionStatus moves the mission from one status to another and
	// reports false when the row was no longer in the from status
	TransitionStatus(ctx context.Context, id int64, from, to models.MissionStatus) (bool, error)

	ListByStatusAndKind(ctx context.Context, status models.MissionStatus, kind models.MissionKind) ([]*models.Mission, error)
	ListOpenDueBy(ctx context.Context, day time.Time) ([]*models.Mission, error)
	ListClosedScheduledStartingOn(ctx context.Context, day time.Time) ([]*models.Mission, error)
	ListOpenByDeadline(ctx context.Context) ([]*models.Mission, error)
	ListTerminated(ctx context.Context, today time.Time) ([]*models.Mission, error)
	ListWithPendingParticipations(ctx context.Context) ([]*models.Mission, error)
}

// ParticipationRepository persists participations
type ParticipationRepository interface {
	// Create inserts a participation; a duplicate (mission, user) pair yields ErrUniqueViolation
	Create(ctx context.Context, p *models.Participation) error
	GetByID(ctx context.Context, id int64) (*models.Participation, error)

	// GetByIDForUpdate locks the participation row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Participation, error)

	ExistsForUser(ctx context.Context, missionID, userID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.ParticipationStatus, reviewedAt time.Time) error
	SetArtifactKey(ctx context.Context, id int64, key string) error

	ListByUserAndStatus(ctx context.Context, userID int64, statuses ...models.ParticipationStatus) ([]*models.Participation, error)
	ListPendingByMission(ctx context.Context, missionID int64) ([]*models.Participation, error)
	CountByMission(ctx context.Context, missionID int64) (int, error)
}

// FileRepository records uploaded artifacts
type FileRepository interface {
	Create(ctx context.Context, file *models.StoredFile) error
	GetByMission(ctx context.Context, missionID int64) (*models.StoredFile, error)
}

// PointRepository mutates the external user point balance
type PointRepository interface {
	CreditPoints(ctx context.Context, userID int64, amount int64) error
	GetBalance(ctx context.Context, userID int64) (int64, error)
}
