package repositories

import (
	"context"
	"fmt"

	"ecomission/internal/database"
	"ecomission/internal/models"

	"go.uber.org/zap"
)

type fileRepository struct {
	*BaseRepository
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *database.Manager, logger *zap.Logger) FileRepository {
	return &fileRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *fileRepository) Create(ctx context.Context, file *models.StoredFile) error {
	if (file.MissionID == nil) == (file.ParticipationID == nil) {
		return fmt.Errorf("file %s must belong to exactly one mission or participation", file.FileKey)
	}

	query := `
		INSERT INTO files (file_key, file_name, content_type, size, mission_id, participation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		file.FileKey, file.FileName, file.ContentType, file.Size, file.MissionID, file.ParticipationID,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}
	return nil
}

func (r *fileRepository) GetByMission(ctx context.Context, missionID int64) (*models.StoredFile, error) {
	query := `
		SELECT id, file_key, file_name, content_type, size, mission_id, participation_id, created_at
		FROM files
		WHERE mission_id = $1
		ORDER BY id DESC
		LIMIT 1`

	var f models.StoredFile
	err := r.QueryRowContext(ctx, query, missionID).Scan(
		&f.ID, &f.FileKey, &f.FileName, &f.ContentType, &f.Size, &f.MissionID, &f.ParticipationID, &f.CreatedAt,
	)
	if err != nil {
		return nil, r.HandleNotFound(err)
	}
	return &f, nil
}
