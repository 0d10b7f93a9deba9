package events

import "time"

// Mission lifecycle event types
const (
	MissionCreated      = "mission.created"
	MissionMaterialized = "mission.materialized"
	MissionOpened       = "mission.opened"
	MissionClosed       = "mission.closed"

	ParticipationSubmitted = "participation.submitted"
	ParticipationApproved  = "participation.approved"
	ParticipationRejected  = "participation.rejected"
)

// MissionEvent reports a mission entering the catalog or changing status
type MissionEvent struct {
	BaseEvent
	MissionID  int64     `json:"mission_id"`
	TemplateID *int64    `json:"template_id,omitempty"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Day        time.Time `json:"day"`
}

// NewMissionEvent creates a mission event of the given type
func NewMissionEvent(eventType string, missionID int64, templateID *int64, kind, status string, day time.Time) *MissionEvent {
	return &MissionEvent{
		BaseEvent:  newBaseEvent(eventType, nil),
		MissionID:  missionID,
		TemplateID: templateID,
		Kind:       kind,
		Status:     status,
		Day:        day,
	}
}

// ParticipationEvent reports a submission or its review outcome
type ParticipationEvent struct {
	BaseEvent
	ParticipationID int64  `json:"participation_id"`
	MissionID       int64  `json:"mission_id"`
	Status          string `json:"status"`
	PointsCredited  int64  `json:"points_credited,omitempty"`
	ReviewerID      *int64 `json:"reviewer_id,omitempty"`
}

// NewParticipationEvent creates a participation event of the given type for the submitting user
func NewParticipationEvent(eventType string, participationID, missionID, userID int64, status string) *ParticipationEvent {
	return &ParticipationEvent{
		BaseEvent:       newBaseEvent(eventType, &userID),
		ParticipationID: participationID,
		MissionID:       missionID,
		Status:          status,
	}
}
