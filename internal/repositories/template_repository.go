package repositories

import (
	"context"
	"fmt"

	"ecomission/internal/database"
	"ecomission/internal/models"

	"go.uber.org/zap"
)

type templateRepository struct {
	*BaseRepository
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *database.Manager, logger *zap.Logger) TemplateRepository {
	return &templateRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *templateRepository) Create(ctx context.Context, tpl *models.MissionTemplate) error {
	query := `
		INSERT INTO mission_templates (title, content, point_value, category, icon_url, banner_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		tpl.Title, tpl.Content, tpl.PointValue, tpl.Category, tpl.IconURL, tpl.BannerURL,
	).Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		r.GetLogger().Error("Failed to create mission template", zap.Error(err), zap.String("title", tpl.Title))
		return fmt.Errorf("failed to create mission template: %w", err)
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id int64) (*models.MissionTemplate, error) {
	query := `
		SELECT id, title, content, point_value, category, icon_url, banner_url, created_at
		FROM mission_templates
		WHERE id = $1`

	var tpl models.MissionTemplate
	err := r.QueryRowContext(ctx, query, id).Scan(
		&tpl.ID, &tpl.Title, &tpl.Content, &tpl.PointValue,
		&tpl.Category, &tpl.IconURL, &tpl.BannerURL, &tpl.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mission template: %w", err)
	}
	return &tpl, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*models.MissionTemplate, error) {
	query := `
		SELECT id, title, content, point_value, category, icon_url, banner_url, created_at
		FROM mission_templates
		ORDER BY id`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mission templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.MissionTemplate
	for rows.Next() {
		var tpl models.MissionTemplate
		if err := rows.Scan(
			&tpl.ID, &tpl.Title, &tpl.Content, &tpl.PointValue,
			&tpl.Category, &tpl.IconURL, &tpl.BannerURL, &tpl.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mission template: %w", err)
		}
		templates = append(templates, &tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mission templates: %w", err)
	}
	return templates, nil
}
