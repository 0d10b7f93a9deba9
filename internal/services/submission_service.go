// file: internal/services/submission_service.go
package services

import (
	"context"
	"errors"

	"ecomission/internal/events"
	"ecomission/internal/models"
	"ecomission/internal/repositories"

	"go.uber.org/zap"
)

const submissionReceivedMessage = "mission submitted, awaiting review"

type submissionService struct {
	tx             repositories.Transactor
	missions       repositories.MissionRepository
	participations repositories.ParticipationRepository
	files          repositories.FileRepository
	storage        ArtifactStorage
	opts           Options
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	tx repositories.Transactor,
	missions repositories.MissionRepository,
	participations repositories.ParticipationRepository,
	files repositories.FileRepository,
	storage ArtifactStorage,
	opts Options,
) SubmissionService {
	return &submissionService{
		tx:             tx,
		missions:       missions,
		participations: participations,
		files:          files,
		storage:        storage,
		opts:           opts.withDefaults(),
	}
}

// Submit records a PENDING participation for the student.
// The checks run once without locks so the proof photo can be uploaded
// before the mission row is locked. They run again under the lock, where
// the duplicate check and the insert cannot interleave with another submit
// or a close job.
func (s *submissionService) Submit(ctx context.Context, actor models.Actor, missionID int64, artifact *models.Artifact) (*ParticipationReceipt, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}

	var meta *models.ArtifactMetadata
	err := s.checkSubmittable(ctx, s.missions.GetByID, actor, missionID)
	if err == nil && !artifact.IsEmpty() {
		meta, err = s.uploadArtifact(ctx, artifact)
	}
	if err != nil {
		return nil, s.rejected(actor, missionID, err)
	}

	var participation *models.Participation
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkSubmittable(ctx, s.missions.GetByIDForUpdate, actor, missionID); err != nil {
			return err
		}

		participation = &models.Participation{
			MissionID: missionID,
			UserID:    actor.UserID,
			Status:    models.ParticipationPending,
		}
		if err := s.participations.Create(ctx, participation); err != nil {
			if errors.Is(err, repositories.ErrUniqueViolation) {
				return NewDuplicateSubmissionError(missionID)
			}
			return NewInternalError("failed to record submission", err)
		}

		if meta != nil {
			if err := s.recordArtifact(ctx, participation, artifact, meta); err != nil {
				return err
			}
		}

		if err := s.missions.IncrementParticipationCount(ctx, missionID); err != nil {
			return NewInternalError("failed to update participation count", err)
		}
		return nil
	})
	if err != nil {
		if meta != nil {
			s.opts.Logger.Warn("Uploaded artifact left without a submission",
				zap.String("key", meta.Key),
				zap.Int64("mission_id", missionID),
			)
		}
		return nil, s.rejected(actor, missionID, err)
	}

	s.opts.Logger.Info("Submission recorded",
		zap.Int64("participation_id", participation.ID),
		zap.Int64("mission_id", missionID),
		zap.Int64("user_id", actor.UserID),
	)
	s.opts.publish(ctx, events.NewParticipationEvent(events.ParticipationSubmitted,
		participation.ID, missionID, actor.UserID, string(participation.Status)))

	return &ParticipationReceipt{
		ParticipationID: participation.ID,
		MissionID:       missionID,
		Status:          participation.Status,
		Message:         submissionReceivedMessage,
		SubmittedAt:     participation.CreatedAt,
	}, nil
}

// checkSubmittable applies NotFound, OPEN, deadline and Duplicate in that order
func (s *submissionService) checkSubmittable(ctx context.Context, load func(context.Context, int64) (*models.Mission, error), actor models.Actor, missionID int64) error {
	mission, err := load(ctx, missionID)
	if err != nil {
		return repoFailure("mission", missionID, err)
	}

	if !mission.IsOpen() || !mission.AcceptsSubmissionsOn(s.opts.today()) {
		return NewInvalidStateError("mission is already closed", CodeMissionAlreadyClosed).
			WithDetail("mission_id", missionID)
	}

	exists, err := s.participations.ExistsForUser(ctx, missionID, actor.UserID)
	if err != nil {
		return NewInternalError("failed to check existing submission", err)
	}
	if exists {
		return NewDuplicateSubmissionError(missionID)
	}
	return nil
}

func (s *submissionService) rejected(actor models.Actor, missionID int64, err error) error {
	s.opts.Logger.Info("Submission rejected",
		zap.Int64("mission_id", missionID),
		zap.Int64("user_id", actor.UserID),
		zap.Error(err),
	)
	return GetServiceError(err)
}

// uploadArtifact validates the proof file and stores it under a fresh key
func (s *submissionService) uploadArtifact(ctx context.Context, artifact *models.Artifact) (*models.ArtifactMetadata, error) {
	meta, err := s.storage.MetadataFor(artifact)
	if err != nil {
		return nil, storageFailure("failed to read artifact metadata", err)
	}
	if err := s.storage.UploadArtifact(ctx, meta.Key, artifact.Data, meta.ContentType); err != nil {
		return nil, storageFailure("failed to upload artifact, please retry", err)
	}
	return meta, nil
}

// recordArtifact links an uploaded proof file to the participation
func (s *submissionService) recordArtifact(ctx context.Context, p *models.Participation, artifact *models.Artifact, meta *models.ArtifactMetadata) error {
	participationID := p.ID
	file := &models.StoredFile{
		FileKey:         meta.Key,
		FileName:        artifact.FileName,
		ContentType:     meta.ContentType,
		Size:            meta.Size,
		ParticipationID: &participationID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return NewInternalError("failed to record artifact", err)
	}
	if err := s.participations.SetArtifactKey(ctx, p.ID, meta.Key); err != nil {
		return NewInternalError("failed to record artifact", err)
	}

	key := meta.Key
	p.ArtifactKey = &key
	return nil
}
