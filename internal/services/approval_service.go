// file: internal/services/approval_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"ecomission/internal/events"
	"ecomission/internal/models"
	"ecomission/internal/repositories"

	"go.uber.org/zap"
)

type approvalService struct {
	tx             repositories.Transactor
	participations repositories.ParticipationRepository
	ledger         PointLedger
	opts           Options
}

// NewApprovalService creates a new approval service
func NewApprovalService(
	tx repositories.Transactor,
	participations repositories.ParticipationRepository,
	ledger PointLedger,
	opts Options,
) ApprovalService {
	return &approvalService{
		tx:             tx,
		participations: participations,
		ledger:         ledger,
		opts:           opts.withDefaults(),
	}
}

// Approve marks the participation APPROVED and credits the mission's points in the same transaction
func (s *approvalService) Approve(ctx context.Context, actor models.Actor, participationID int64) error {
	return s.review(ctx, actor, participationID, models.ParticipationApproved)
}

// Reject marks the participation REJECTED without crediting points
func (s *approvalService) Reject(ctx context.Context, actor models.Actor, participationID int64) error {
	return s.review(ctx, actor, participationID, models.ParticipationRejected)
}

func (s *approvalService) review(ctx context.Context, actor models.Actor, participationID int64, outcome models.ParticipationStatus) error {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return err
	}

	var reviewed *models.Participation
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.participations.GetByIDForUpdate(ctx, participationID)
		if err != nil {
			return repoFailure("participation", participationID, err)
		}

		if p.Status != models.ParticipationPending {
			return NewInvalidStateError(
				fmt.Sprintf("participation is already %s", p.Status),
				CodeInvalidApprovalState,
			).WithDetail("participation_id", participationID)
		}

		if err := s.participations.UpdateStatus(ctx, p.ID, outcome, s.opts.Clock()); err != nil {
			return NewInternalError("failed to update participation status", err)
		}

		if outcome == models.ParticipationApproved {
			if err := s.ledger.CreditPoints(ctx, p.UserID, p.MissionPoint); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return EntityNotFoundError("user", p.UserID)
				}
				return NewInternalError("failed to credit points", err)
			}
		}

		p.Status = outcome
		reviewed = p
		return nil
	})
	if err != nil {
		return GetServiceError(err)
	}

	s.opts.Logger.Info("Participation reviewed",
		zap.Int64("participation_id", reviewed.ID),
		zap.Int64("mission_id", reviewed.MissionID),
		zap.Int64("user_id", reviewed.UserID),
		zap.String("status", string(outcome)),
		zap.Int64("reviewer_id", actor.UserID),
	)

	eventType := events.ParticipationRejected
	if outcome == models.ParticipationApproved {
		eventType = events.ParticipationApproved
	}
	event := events.NewParticipationEvent(eventType, reviewed.ID, reviewed.MissionID, reviewed.UserID, string(outcome))
	if outcome == models.ParticipationApproved {
		event.PointsCredited = reviewed.MissionPoint
	}
	reviewerID := actor.UserID
	event.ReviewerID = &reviewerID
	s.opts.publish(ctx, event)

	return nil
}
