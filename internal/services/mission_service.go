// file: internal/services/mission_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"ecomission/internal/cache"
	"ecomission/internal/models"
	"ecomission/internal/repositories"
)

// openMissionsKey is the cache key of the open mission list for a kind
func openMissionsKey(kind models.MissionKind) string {
	return fmt.Sprintf("missions:open:%s", kind)
}

type missionService struct {
	missions       repositories.MissionRepository
	participations repositories.ParticipationRepository
	files          repositories.FileRepository
	storage        ArtifactStorage
	lists          *cache.Loader
	opts           Options
}

// NewMissionService creates the student-facing mission service.
// lists may be nil to disable list caching.
func NewMissionService(
	missions repositories.MissionRepository,
	participations repositories.ParticipationRepository,
	files repositories.FileRepository,
	storage ArtifactStorage,
	lists *cache.Loader,
	opts Options,
) MissionService {
	return &missionService{
		missions:       missions,
		participations: participations,
		files:          files,
		storage:        storage,
		lists:          lists,
		opts:           opts.withDefaults(),
	}
}

// ListOpenMissions lists OPEN missions of the given kind
func (s *missionService) ListOpenMissions(ctx context.Context, actor models.Actor, kind models.MissionKind) ([]*MissionSummary, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	if _, ok := models.ParseMissionKind(string(kind)); !ok {
		return nil, NewValidationError(fmt.Sprintf("unknown mission kind %q", kind), nil)
	}

	return cache.Load(ctx, s.lists, openMissionsKey(kind), func() ([]*MissionSummary, error) {
		missions, err := s.missions.ListByStatusAndKind(ctx, models.MissionStatusOpen, kind)
		if err != nil {
			return nil, NewInternalError("failed to list missions", err)
		}

		summaries := make([]*MissionSummary, 0, len(missions))
		for _, m := range missions {
			summary := toMissionSummary(m)
			summaries = append(summaries, &summary)
		}
		return summaries, nil
	})
}

// GetMissionDetail returns the mission with the caller's submission flag
func (s *missionService) GetMissionDetail(ctx context.Context, actor models.Actor, missionID int64) (*MissionDetail, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}

	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		return nil, repoFailure("mission", missionID, err)
	}

	hasSubmitted, err := s.participations.ExistsForUser(ctx, missionID, actor.UserID)
	if err != nil {
		return nil, NewInternalError("failed to check submission", err)
	}

	detail := &MissionDetail{
		MissionSummary: toMissionSummary(mission),
		Content:        mission.Content,
		HasSubmitted:   hasSubmitted,
	}

	if mission.Kind == models.MissionKindEvent {
		count := mission.ParticipationCount
		detail.ParticipationCount = &count

		file, err := s.files.GetByMission(ctx, missionID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
		case err != nil:
			return nil, NewInternalError("failed to load mission image", err)
		default:
			if detail.ImageURL, err = s.signedURL(ctx, file.FileKey); err != nil {
				return nil, err
			}
		}
	}

	return detail, nil
}

// ListPendingSubmissions lists the caller's PENDING submissions, newest first
func (s *missionService) ListPendingSubmissions(ctx context.Context, actor models.Actor) ([]*SubmissionItem, error) {
	return s.listSubmissions(ctx, actor, models.ParticipationPending)
}

// ListHistory lists all of the caller's submissions, newest first
func (s *missionService) ListHistory(ctx context.Context, actor models.Actor) ([]*SubmissionItem, error) {
	return s.listSubmissions(ctx, actor)
}

// GetHistoryDetail returns one of the caller's own submissions
func (s *missionService) GetHistoryDetail(ctx context.Context, actor models.Actor, participationID int64) (*SubmissionDetail, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}

	p, err := s.participations.GetByID(ctx, participationID)
	if err != nil {
		return nil, repoFailure("participation", participationID, err)
	}
	// Another student's submission is reported as absent
	if !p.IsOwnedBy(actor.UserID) {
		return nil, EntityNotFoundError("participation", participationID)
	}

	mission, err := s.missions.GetByID(ctx, p.MissionID)
	if err != nil {
		return nil, repoFailure("mission", p.MissionID, err)
	}

	photoURL, err := s.photoURL(ctx, p)
	if err != nil {
		return nil, err
	}

	return &SubmissionDetail{
		SubmissionItem:     *toSubmissionItem(p, photoURL),
		Content:            mission.Content,
		BannerURL:          mission.BannerURL,
		StartDate:          formatDate(mission.StartDate),
		Deadline:           formatDate(mission.Deadline),
		ParticipationCount: mission.ParticipationCount,
	}, nil
}

func (s *missionService) listSubmissions(ctx context.Context, actor models.Actor, statuses ...models.ParticipationStatus) ([]*SubmissionItem, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}

	participations, err := s.participations.ListByUserAndStatus(ctx, actor.UserID, statuses...)
	if err != nil {
		return nil, NewInternalError("failed to list submissions", err)
	}

	items := make([]*SubmissionItem, 0, len(participations))
	for _, p := range participations {
		photoURL, err := s.photoURL(ctx, p)
		if err != nil {
			return nil, err
		}
		items = append(items, toSubmissionItem(p, photoURL))
	}
	return items, nil
}

func (s *missionService) photoURL(ctx context.Context, p *models.Participation) (string, error) {
	if p.ArtifactKey == nil || *p.ArtifactKey == "" {
		return "", nil
	}
	return s.signedURL(ctx, *p.ArtifactKey)
}

func (s *missionService) signedURL(ctx context.Context, key string) (string, error) {
	url, err := s.storage.SignedURLFor(ctx, key)
	if err != nil {
		return "", storageFailure("failed to sign artifact URL", err)
	}
	return url, nil
}
