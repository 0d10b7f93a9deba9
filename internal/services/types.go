// file: internal/services/types.go
package services

import (
	"time"

	"ecomission/internal/models"
)

// DateLayout is the wire format of calendar days
const DateLayout = "2006-01-02"

// ===============================
// SUBMISSION TYPES
// ===============================

// ParticipationReceipt is returned after a successful submission
type ParticipationReceipt struct {
	ParticipationID int64                      `json:"participation_id"`
	MissionID       int64                      `json:"mission_id"`
	Status          models.ParticipationStatus `json:"status"`
	Message         string                     `json:"message"`
	SubmittedAt     time.Time                  `json:"submitted_at"`
}

// SubmissionItem is one row of a student's pending or history list
type SubmissionItem struct {
	ParticipationID int64                      `json:"participation_id"`
	MissionID       int64                      `json:"mission_id"`
	Title           string                     `json:"title"`
	Category        models.MissionCategory     `json:"category"`
	Kind            models.MissionKind         `json:"kind"`
	IconURL         string                     `json:"icon_url"`
	MissionPoint    int64                      `json:"mission_point"`
	Status          models.ParticipationStatus `json:"status"`
	PhotoURL        string                     `json:"photo_url,omitempty"`
	SubmittedAt     time.Time                  `json:"submitted_at"`
	ReviewedAt      *time.Time                 `json:"reviewed_at,omitempty"`
}

// SubmissionDetail extends SubmissionItem with the mission it was made against
type SubmissionDetail struct {
	SubmissionItem
	Content            string `json:"content"`
	BannerURL          string `json:"banner_url"`
	StartDate          string `json:"start_date"`
	Deadline           string `json:"deadline"`
	ParticipationCount int    `json:"participation_count"`
}

// ===============================
// MISSION VIEW TYPES
// ===============================

// MissionSummary is the list view of a mission
type MissionSummary struct {
	ID            int64                  `json:"id"`
	Title         string                 `json:"title"`
	PointValue    int64                  `json:"point_value"`
	Kind          models.MissionKind     `json:"kind"`
	Category      models.MissionCategory `json:"category"`
	CategoryLabel string                 `json:"category_label"`
	IconURL       string                 `json:"icon_url"`
	BannerURL     string                 `json:"banner_url"`
	StartDate     string                 `json:"start_date"`
	Deadline      string                 `json:"deadline"`
	Status        models.MissionStatus   `json:"status"`
}

// MissionDetail is the student detail view of a mission.
// ParticipationCount is only exposed for EVENT missions.
type MissionDetail struct {
	MissionSummary
	Content            string `json:"content"`
	ImageURL           string `json:"image_url,omitempty"`
	HasSubmitted       bool   `json:"has_submitted"`
	ParticipationCount *int   `json:"participation_count,omitempty"`
}

// AdminMissionItem is the admin list view of a mission
type AdminMissionItem struct {
	MissionSummary
	ParticipationCount int `json:"participation_count"`
}

// CategoryResponse describes one mission category
type CategoryResponse struct {
	Category models.MissionCategory `json:"category"`
	Label    string                 `json:"label"`
	IconURL  string                 `json:"icon_url"`
}

// ApprovalRequest is one pending submission awaiting review
type ApprovalRequest struct {
	ParticipationID int64     `json:"participation_id"`
	UserID          int64     `json:"user_id"`
	PhotoURL        string    `json:"photo_url,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// ApprovalRequestList groups the pending submissions of one mission
type ApprovalRequestList struct {
	Mission  MissionSummary     `json:"mission"`
	Requests []*ApprovalRequest `json:"requests"`
}

// ===============================
// ADMIN REQUEST TYPES
// ===============================

// CreateTemplateRequest creates a SCHEDULED mission template
type CreateTemplateRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Content    string `json:"content" validate:"max=2000"`
	PointValue int64  `json:"point_value" validate:"gt=0"`
	Category   string `json:"category" validate:"required"`
}

// CreateEventMissionRequest creates a dated EVENT mission
type CreateEventMissionRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Content    string `json:"content" validate:"max=2000"`
	PointValue int64  `json:"point_value" validate:"gt=0"`
	Category   string `json:"category" validate:"required"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Deadline   string `json:"deadline" validate:"required,datetime=2006-01-02"`
}

// ===============================
// CONVERTERS
// ===============================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func toMissionSummary(m *models.Mission) MissionSummary {
	return MissionSummary{
		ID:            m.ID,
		Title:         m.Title,
		PointValue:    m.PointValue,
		Kind:          m.Kind,
		Category:      m.Category,
		CategoryLabel: m.Category.Label(),
		IconURL:       m.IconURL,
		BannerURL:     m.BannerURL,
		StartDate:     formatDate(m.StartDate),
		Deadline:      formatDate(m.Deadline),
		Status:        m.Status,
	}
}

func toAdminMissionItems(missions []*models.Mission) []*AdminMissionItem {
	items := make([]*AdminMissionItem, 0, len(missions))
	for _, m := range missions {
		items = append(items, &AdminMissionItem{
			MissionSummary:     toMissionSummary(m),
			ParticipationCount: m.ParticipationCount,
		})
	}
	return items
}

func toSubmissionItem(p *models.Participation, photoURL string) *SubmissionItem {
	return &SubmissionItem{
		ParticipationID: p.ID,
		MissionID:       p.MissionID,
		Title:           p.MissionTitle,
		Category:        p.MissionCategory,
		Kind:            p.MissionKind,
		IconURL:         p.MissionIconURL,
		MissionPoint:    p.MissionPoint,
		Status:          p.Status,
		PhotoURL:        photoURL,
		SubmittedAt:     p.CreatedAt,
		ReviewedAt:      p.ReviewedAt,
	}
}
