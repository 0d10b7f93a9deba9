// file: internal/models/participation.go
package models

import "time"

// ParticipationStatus is the approval state of a submission
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "PENDING"
	ParticipationApproved ParticipationStatus = "APPROVED"
	ParticipationRejected ParticipationStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is allowed
func (s ParticipationStatus) IsTerminal() bool {
	return s == ParticipationApproved || s == ParticipationRejected
}

// Participation is one student's submission against one mission
type Participation struct {
	ID          int64               `json:"id" db:"id"`
	MissionID   int64               `json:"mission_id" db:"mission_id"`
	UserID      int64               `json:"user_id" db:"user_id"`
	Status      ParticipationStatus `json:"status" db:"status"`
	ArtifactKey *string             `json:"artifact_key,omitempty" db:"artifact_key"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	ReviewedAt  *time.Time          `json:"reviewed_at,omitempty" db:"reviewed_at"`

	// Related information (joined)
	MissionTitle    string          `json:"mission_title,omitempty" db:"mission_title"`
	MissionPoint    int64           `json:"mission_point,omitempty" db:"mission_point"`
	MissionCategory MissionCategory `json:"mission_category,omitempty" db:"mission_category"`
	MissionIconURL  string          `json:"mission_icon_url,omitempty" db:"mission_icon_url"`
	MissionKind     MissionKind     `json:"mission_kind,omitempty" db:"mission_kind"`
}

// IsOwnedBy checks if the participation belongs to the given user
func (p *Participation) IsOwnedBy(userID int64) bool {
	return p.UserID == userID
}

// StoredFile records an object uploaded to artifact storage.
// Exactly one of MissionID and ParticipationID is set.
type StoredFile struct {
	ID              int64     `json:"id" db:"id"`
	FileKey         string    `json:"file_key" db:"file_key"`
	FileName        string    `json:"file_name" db:"file_name"`
	ContentType     string    `json:"content_type" db:"content_type"`
	Size            int64     `json:"size" db:"size"`
	MissionID       *int64    `json:"mission_id,omitempty" db:"mission_id"`
	ParticipationID *int64    `json:"participation_id,omitempty" db:"participation_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
