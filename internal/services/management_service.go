// file: internal/services/management_service.go
package services

import (
	"context"
	"time"

	"ecomission/internal/events"
	"ecomission/internal/models"
	"ecomission/internal/repositories"
	"ecomission/internal/validation"

	"go.uber.org/zap"
)

type managementService struct {
	tx             repositories.Transactor
	templates      repositories.TemplateRepository
	missions       repositories.MissionRepository
	participations repositories.ParticipationRepository
	files          repositories.FileRepository
	storage        ArtifactStorage
	icons          IconResolver
	opts           Options
}

// NewManagementService creates the admin-facing mission service
func NewManagementService(
	tx repositories.Transactor,
	templates repositories.TemplateRepository,
	missions repositories.MissionRepository,
	participations repositories.ParticipationRepository,
	files repositories.FileRepository,
	storage ArtifactStorage,
	icons IconResolver,
	opts Options,
) ManagementService {
	return &managementService{
		tx:             tx,
		templates:      templates,
		missions:       missions,
		participations: participations,
		files:          files,
		storage:        storage,
		icons:          icons,
		opts:           opts.withDefaults(),
	}
}

// CreateTemplate stores a SCHEDULED mission blueprint for the nightly materialization job
func (s *managementService) CreateTemplate(ctx context.Context, actor models.Actor, req *CreateTemplateRequest) (*models.MissionTemplate, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid template request", err)
	}

	category := models.MissionCategory(req.Category)
	iconURL, bannerURL, err := resolveAssets(s.icons, category, models.MissionKindScheduled)
	if err != nil {
		return nil, err
	}

	tpl := &models.MissionTemplate{
		Title:      req.Title,
		Content:    req.Content,
		PointValue: req.PointValue,
		Category:   category,
		IconURL:    iconURL,
		BannerURL:  bannerURL,
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, NewInternalError("failed to create template", err)
	}

	s.opts.Logger.Info("Mission template created",
		zap.Int64("template_id", tpl.ID),
		zap.String("category", string(tpl.Category)),
		zap.Int64("admin_id", actor.UserID),
	)
	return tpl, nil
}

// CreateEventMission creates a dated EVENT mission, OPEN when it starts today.
// Every check runs before the first write.
func (s *managementService) CreateEventMission(ctx context.Context, actor models.Actor, req *CreateEventMissionRequest, image *models.Artifact) (*models.Mission, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid event mission request", err)
	}

	startDate, err := time.Parse(DateLayout, req.StartDate)
	if err != nil {
		return nil, NewValidationError("invalid start_date", err)
	}
	deadline, err := time.Parse(DateLayout, req.Deadline)
	if err != nil {
		return nil, NewValidationError("invalid deadline", err)
	}
	if startDate.After(deadline) {
		return nil, NewInvalidStateError("start date must not be after the deadline", CodeInvalidDateRange).
			WithDetail("start_date", req.StartDate).
			WithDetail("deadline", req.Deadline)
	}

	category := models.MissionCategory(req.Category)
	iconURL, bannerURL, err := resolveAssets(s.icons, category, models.MissionKindEvent)
	if err != nil {
		return nil, err
	}

	var meta *models.ArtifactMetadata
	if !image.IsEmpty() {
		if meta, err = s.storage.MetadataFor(image); err != nil {
			return nil, storageFailure("failed to read mission image metadata", err)
		}
	}

	mission := &models.Mission{
		Title:      req.Title,
		Content:    req.Content,
		PointValue: req.PointValue,
		Kind:       models.MissionKindEvent,
		StartDate:  models.DateOf(startDate),
		Deadline:   models.DateOf(deadline),
		IconURL:    iconURL,
		BannerURL:  bannerURL,
		Category:   category,
		Status:     models.InitialStatusOn(startDate, s.opts.today()),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.missions.Create(ctx, mission); err != nil {
			return NewInternalError("failed to create mission", err)
		}
		if meta == nil {
			return nil
		}

		missionID := mission.ID
		if err := s.files.Create(ctx, &models.StoredFile{
			FileKey:     meta.Key,
			FileName:    image.FileName,
			ContentType: meta.ContentType,
			Size:        meta.Size,
			MissionID:   &missionID,
		}); err != nil {
			return NewInternalError("failed to record mission image", err)
		}
		if err := s.storage.UploadArtifact(ctx, meta.Key, image.Data, meta.ContentType); err != nil {
			return storageFailure("failed to upload mission image, please retry", err)
		}
		return nil
	})
	if err != nil {
		return nil, GetServiceError(err)
	}

	s.opts.Logger.Info("Event mission created",
		zap.Int64("mission_id", mission.ID),
		zap.String("status", string(mission.Status)),
		zap.Int64("admin_id", actor.UserID),
	)
	s.opts.publish(ctx, events.NewMissionEvent(events.MissionCreated, mission.ID, nil,
		string(mission.Kind), string(mission.Status), mission.StartDate))

	return mission, nil
}

// ListDeadlineMissions lists OPEN missions by nearest deadline
func (s *managementService) ListDeadlineMissions(ctx context.Context, actor models.Actor) ([]*AdminMissionItem, error) {
	return s.listMissions(ctx, actor, func(ctx context.Context) ([]*models.Mission, error) {
		return s.missions.ListOpenByDeadline(ctx)
	})
}

// ListTerminatedMissions lists past-deadline CLOSED missions with nothing left to review
func (s *managementService) ListTerminatedMissions(ctx context.Context, actor models.Actor) ([]*AdminMissionItem, error) {
	return s.listMissions(ctx, actor, func(ctx context.Context) ([]*models.Mission, error) {
		return s.missions.ListTerminated(ctx, s.opts.today())
	})
}

// ListPendingApprovals lists missions that still have PENDING submissions
func (s *managementService) ListPendingApprovals(ctx context.Context, actor models.Actor) ([]*AdminMissionItem, error) {
	return s.listMissions(ctx, actor, s.missions.ListWithPendingParticipations)
}

// ListCategories lists the known categories with their label and icon
func (s *managementService) ListCategories(ctx context.Context, actor models.Actor) ([]*CategoryResponse, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	categories := make([]*CategoryResponse, 0, len(models.KnownCategories))
	for _, c := range models.KnownCategories {
		iconURL, _ := s.icons.ResolveIcon(c)
		categories = append(categories, &CategoryResponse{
			Category: c,
			Label:    c.Label(),
			IconURL:  iconURL,
		})
	}
	return categories, nil
}

// GetApprovalRequests lists the PENDING submissions of one mission, oldest first
func (s *managementService) GetApprovalRequests(ctx context.Context, actor models.Actor, missionID int64) (*ApprovalRequestList, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		return nil, repoFailure("mission", missionID, err)
	}

	pending, err := s.participations.ListPendingByMission(ctx, missionID)
	if err != nil {
		return nil, NewInternalError("failed to list approval requests", err)
	}

	list := &ApprovalRequestList{
		Mission:  toMissionSummary(mission),
		Requests: make([]*ApprovalRequest, 0, len(pending)),
	}
	for _, p := range pending {
		req := &ApprovalRequest{
			ParticipationID: p.ID,
			UserID:          p.UserID,
			SubmittedAt:     p.CreatedAt,
		}
		if p.ArtifactKey != nil && *p.ArtifactKey != "" {
			if req.PhotoURL, err = s.storage.SignedURLFor(ctx, *p.ArtifactKey); err != nil {
				return nil, storageFailure("failed to sign artifact URL", err)
			}
		}
		list.Requests = append(list.Requests, req)
	}
	return list, nil
}

func (s *managementService) listMissions(ctx context.Context, actor models.Actor, fetch func(context.Context) ([]*models.Mission, error)) ([]*AdminMissionItem, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	missions, err := fetch(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list missions", err)
	}
	return toAdminMissionItems(missions), nil
}

// resolveAssets looks up the icon and banner for a new mission or template
func resolveAssets(icons IconResolver, category models.MissionCategory, kind models.MissionKind) (string, string, error) {
	iconURL, ok := icons.ResolveIcon(category)
	if !ok {
		return "", "", NewInvalidCategoryError(string(category))
	}
	bannerURL, _ := icons.ResolveBanner(kind)
	return iconURL, bannerURL, nil
}
