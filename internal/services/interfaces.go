// file: internal/services/interfaces.go
package services

import (
	"context"
	"time"

	"ecomission/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// SubmissionService records student submissions against missions
type SubmissionService interface {
	Submit(ctx context.Context, actor models.Actor, missionID int64, artifact *models.Artifact) (*ParticipationReceipt, error)
}

// ApprovalService moves pending submissions to a terminal state
type ApprovalService interface {
	Approve(ctx context.Context, actor models.Actor, participationID int64) error
	Reject(ctx context.Context, actor models.Actor, participationID int64) error
}

// MissionService serves the student-facing mission views
type MissionService interface {
	ListOpenMissions(ctx context.Context, actor models.Actor, kind models.MissionKind) ([]*MissionSummary, error)
	GetMissionDetail(ctx context.Context, actor models.Actor, missionID int64) (*MissionDetail, error)
	ListPendingSubmissions(ctx context.Context, actor models.Actor) ([]*SubmissionItem, error)
	ListHistory(ctx context.Context, actor models.Actor) ([]*SubmissionItem, error)
	GetHistoryDetail(ctx context.Context, actor models.Actor, participationID int64) (*SubmissionDetail, error)
}

// ManagementService serves the admin-facing mission operations
type ManagementService interface {
	CreateTemplate(ctx context.Context, actor models.Actor, req *CreateTemplateRequest) (*models.MissionTemplate, error)
	CreateEventMission(ctx context.Context, actor models.Actor, req *CreateEventMissionRequest, image *models.Artifact) (*models.Mission, error)
	ListDeadlineMissions(ctx context.Context, actor models.Actor) ([]*AdminMissionItem, error)
	ListTerminatedMissions(ctx context.Context, actor models.Actor) ([]*AdminMissionItem, error)
	ListPendingApprovals(ctx context.Context, actor models.Actor) ([]*AdminMissionItem, error)
	ListCategories(ctx context.Context, actor models.Actor) ([]*CategoryResponse, error)
	GetApprovalRequests(ctx context.Context, actor models.Actor, missionID int64) (*ApprovalRequestList, error)
}

// ===============================
// COLLABORATOR INTERFACES
// ===============================

// ArtifactStorage keeps proof photos and mission images.
// Any error returned is surfaced to callers as STORAGE_ERROR unless it wraps
// storage.ErrInvalidArtifact.
type ArtifactStorage interface {
	UploadArtifact(ctx context.Context, key string, data []byte, contentType string) error
	MetadataFor(artifact *models.Artifact) (*models.ArtifactMetadata, error)
	SignedURLFor(ctx context.Context, key string) (string, error)
}

// PointLedger owns user point balances. CreditPoints must join the
// transaction carried by ctx.
type PointLedger interface {
	CreditPoints(ctx context.Context, userID int64, amount int64) error
}

// IconResolver maps categories and mission kinds to asset URLs
type IconResolver interface {
	ResolveIcon(category models.MissionCategory) (string, bool)
	ResolveBanner(kind models.MissionKind) (string, bool)
}

// Clock returns the current time
type Clock func() time.Time
