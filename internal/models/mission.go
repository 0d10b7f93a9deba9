// file: internal/models/mission.go
package models

import (
	"time"

	"golang.org/x/exp/slices"
)

// ===============================
// MISSION ENUMS
// ===============================

// MissionStatus is the visibility state of a mission
type MissionStatus string

const (
	MissionStatusOpen   MissionStatus = "OPEN"
	MissionStatusClosed MissionStatus = "CLOSED"
)

// MissionKind distinguishes template-derived missions from one-off events
type MissionKind string

const (
	MissionKindScheduled MissionKind = "SCHEDULED"
	MissionKindEvent     MissionKind = "EVENT"
)

// MissionCategory groups missions for icon lookup and filtering
type MissionCategory string

const (
	CategoryPublicTransportation MissionCategory = "PUBLIC_TRANSPORTATION"
	CategoryTumbler              MissionCategory = "TUMBLER"
	CategoryRecycling            MissionCategory = "RECYCLING"
	CategoryEtc                  MissionCategory = "ETC"
)

// KnownCategories lists the categories in display order
var KnownCategories = []MissionCategory{
	CategoryPublicTransportation,
	CategoryTumbler,
	CategoryRecycling,
	CategoryEtc,
}

var categoryLabels = map[MissionCategory]string{
	CategoryPublicTransportation: "대중교통",
	CategoryTumbler:              "텀블러",
	CategoryRecycling:            "분리수거",
	CategoryEtc:                  "기타",
}

// Label returns the display name of the category
func (c MissionCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// IsKnown reports whether the category is one of KnownCategories
func (c MissionCategory) IsKnown() bool {
	return slices.Contains(KnownCategories, c)
}

// ParseMissionKind validates a kind coming from a request path or query
func ParseMissionKind(s string) (MissionKind, bool) {
	switch MissionKind(s) {
	case MissionKindScheduled, MissionKindEvent:
		return MissionKind(s), true
	}
	return "", false
}

// ===============================
// MISSION ENTITIES
// ===============================

// MissionTemplate is a dateless blueprint materialized into daily missions
type MissionTemplate struct {
	ID         int64           `json:"id" db:"id"`
	Title      string          `json:"title" db:"title" validate:"required,max=255"`
	Content    string          `json:"content" db:"content"`
	PointValue int64           `json:"point_value" db:"point_value" validate:"gt=0"`
	Category   MissionCategory `json:"category" db:"category"`
	IconURL    string          `json:"icon_url" db:"icon_url"`
	BannerURL  string          `json:"banner_url" db:"banner_url"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Mission is a dated, stateful instance students can submit against
type Mission struct {
	ID                 int64           `json:"id" db:"id"`
	TemplateID         *int64          `json:"template_id,omitempty" db:"template_id"`
	Title              string          `json:"title" db:"title"`
	Content            string          `json:"content" db:"content"`
	PointValue         int64           `json:"point_value" db:"point_value"`
	Kind               MissionKind     `json:"kind" db:"kind"`
	StartDate          time.Time       `json:"start_date" db:"start_date"`
	Deadline           time.Time       `json:"deadline" db:"deadline"`
	IconURL            string          `json:"icon_url" db:"icon_url"`
	BannerURL          string          `json:"banner_url" db:"banner_url"`
	Category           MissionCategory `json:"category" db:"category"`
	Status             MissionStatus   `json:"status" db:"status"`
	ParticipationCount int             `json:"participation_count" db:"participation_count"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the stored status is OPEN
func (m *Mission) IsOpen() bool {
	return m.Status == MissionStatusOpen
}

// AcceptsSubmissionsOn reports whether the given day is on or before the deadline
func (m *Mission) AcceptsSubmissionsOn(day time.Time) bool {
	return !DateOf(day).After(DateOf(m.Deadline))
}

// DueOn reports whether the mission should be closed at the end of day
func (m *Mission) DueOn(day time.Time) bool {
	return !DateOf(m.Deadline).After(DateOf(day))
}

// StartsOn reports whether the mission's start date is the given day
func (m *Mission) StartsOn(day time.Time) bool {
	return DateOf(m.StartDate).Equal(DateOf(day))
}

// InitialStatusOn returns OPEN when the mission starts on the creation day
func InitialStatusOn(startDate, today time.Time) MissionStatus {
	if DateOf(startDate).Equal(DateOf(today)) {
		return MissionStatusOpen
	}
	return MissionStatusClosed
}

// NewScheduledMission builds the mission a template produces for day
func NewScheduledMission(tpl *MissionTemplate, day, today time.Time) *Mission {
	templateID := tpl.ID
	d := DateOf(day)
	return &Mission{
		TemplateID: &templateID,
		Title:      tpl.Title,
		Content:    tpl.Content,
		PointValue: tpl.PointValue,
		Kind:       MissionKindScheduled,
		StartDate:  d,
		Deadline:   d,
		IconURL:    tpl.IconURL,
		BannerURL:  tpl.BannerURL,
		Category:   tpl.Category,
		Status:     InitialStatusOn(d, today),
	}
}
