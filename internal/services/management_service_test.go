package services

import (
	"context"
	"testing"

	"ecomission/internal/events"
	"ecomission/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplate() *CreateTemplateRequest {
	return &CreateTemplateRequest{
		Title:      "Take the shuttle bus",
		Content:    "Ride the campus shuttle instead of a taxi",
		PointValue: 10,
		Category:   string(models.CategoryPublicTransportation),
	}
}

func eventRequest(start, deadline string) *CreateEventMissionRequest {
	return &CreateEventMissionRequest{
		Title:      "Earth hour",
		Content:    "Switch off the dorm lights",
		PointValue: 300,
		Category:   string(models.CategoryEtc),
		StartDate:  start,
		Deadline:   deadline,
	}
}

func TestCreateTemplate_ResolvesAssets(t *testing.T) {
	f := newFixture()

	tpl, err := f.management.CreateTemplate(context.Background(), admin, validTemplate())
	require.NoError(t, err)

	assert.NotZero(t, tpl.ID)
	assert.Contains(t, tpl.IconURL, "fc7b54f9")
	assert.Contains(t, tpl.BannerURL, "011e06d1")

	stored, err := f.repos.Templates.GetByID(context.Background(), tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Title, stored.Title)
}

func TestCreateTemplate_RejectsBadInput(t *testing.T) {
	f := newFixture()

	req := validTemplate()
	req.Category = "BICYCLE"
	_, err := f.management.CreateTemplate(context.Background(), admin, req)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrTypeInvalidCategory))

	req = validTemplate()
	req.PointValue = 0
	_, err = f.management.CreateTemplate(context.Background(), admin, req)
	assert.True(t, IsErrorType(err, ErrTypeValidation))

	_, err = f.management.CreateTemplate(context.Background(), student, validTemplate())
	assert.True(t, IsForbiddenError(err))

	assert.Equal(t, 0, f.store.Calls("templates.Create"))
}

func TestCreateEventMission_StatusFollowsStartDate(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		status models.MissionStatus
	}{
		{"starts today", "2025-03-10", models.MissionStatusOpen},
		{"starts later", "2025-03-12", models.MissionStatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			mission, err := f.management.CreateEventMission(context.Background(), admin, eventRequest(tt.start, "2025-03-20"), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.status, mission.Status)
			assert.Equal(t, models.MissionKindEvent, mission.Kind)
			assert.Contains(t, mission.BannerURL, "537500d1")
			assert.Contains(t, f.bus.types(), events.MissionCreated)
		})
	}
}

func TestCreateEventMission_StoresImage(t *testing.T) {
	f := newFixture()

	mission, err := f.management.CreateEventMission(context.Background(), admin, eventRequest("2025-03-10", "2025-03-10"), photo())
	require.NoError(t, err)

	files := f.store.Files()
	require.Len(t, files, 1)
	require.NotNil(t, files[0].MissionID)
	assert.Equal(t, mission.ID, *files[0].MissionID)
	assert.Equal(t, 1, f.storage.uploadCount())
}

func TestCreateEventMission_RejectsInvertedRange(t *testing.T) {
	f := newFixture()

	_, err := f.management.CreateEventMission(context.Background(), admin, eventRequest("2025-03-20", "2025-03-10"), nil)
	require.Error(t, err)
	assert.True(t, IsInvalidStateError(err))
	assert.Equal(t, CodeInvalidDateRange, GetServiceError(err).Code)
	assert.Empty(t, f.store.Missions())
}

func TestCreateEventMission_RejectsMalformedDates(t *testing.T) {
	f := newFixture()

	_, err := f.management.CreateEventMission(context.Background(), admin, eventRequest("03/10/2025", "2025-03-10"), nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrTypeValidation))
}

func TestCreateEventMission_UploadFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.storage.uploadErr = errBoom

	_, err := f.management.CreateEventMission(context.Background(), admin, eventRequest("2025-03-10", "2025-03-11"), photo())
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
	assert.Empty(t, f.store.Missions())
	assert.Empty(t, f.store.Files())
	assert.Empty(t, f.bus.types())
}

func TestAdminLists(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 0)
	yesterday := today.AddDate(0, 0, -1)

	running := f.openMission(10)
	reviewed := f.seedMission(models.MissionKindScheduled, models.MissionStatusClosed, yesterday, yesterday, 10)
	awaiting := f.seedMission(models.MissionKindScheduled, models.MissionStatusClosed, yesterday, yesterday, 10)

	// Submissions go straight into the store since both missions are closed
	for _, missionID := range []int64{reviewed, awaiting} {
		require.NoError(t, f.repos.Participations.Create(context.Background(), &models.Participation{
			MissionID: missionID, UserID: student.UserID, Status: models.ParticipationPending,
		}))
	}
	pendingOfReviewed := f.store.Participations(reviewed)[0]
	require.NoError(t, f.approvals.Approve(context.Background(), admin, pendingOfReviewed.ID))

	deadline, err := f.management.ListDeadlineMissions(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, deadline, 1)
	assert.Equal(t, running, deadline[0].ID)

	terminated, err := f.management.ListTerminatedMissions(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, terminated, 1)
	assert.Equal(t, reviewed, terminated[0].ID)

	pending, err := f.management.ListPendingApprovals(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, awaiting, pending[0].ID)

	_, err = f.management.ListDeadlineMissions(context.Background(), student)
	assert.True(t, IsForbiddenError(err))
}

func TestListCategories(t *testing.T) {
	f := newFixture()

	categories, err := f.management.ListCategories(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, categories, len(models.KnownCategories))
	assert.Equal(t, models.CategoryPublicTransportation, categories[0].Category)
	assert.Equal(t, "대중교통", categories[0].Label)
	assert.NotEmpty(t, categories[0].IconURL)
}

func TestGetApprovalRequests(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	_, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.NoError(t, err)
	_, err = f.submissions.Submit(context.Background(), otherStudent, missionID, nil)
	require.NoError(t, err)

	list, err := f.management.GetApprovalRequests(context.Background(), admin, missionID)
	require.NoError(t, err)
	assert.Equal(t, missionID, list.Mission.ID)
	require.Len(t, list.Requests, 2)
	assert.Equal(t, student.UserID, list.Requests[0].UserID)
	assert.Contains(t, list.Requests[0].PhotoURL, "https://signed.example.com/")
	assert.Empty(t, list.Requests[1].PhotoURL)

	_, err = f.management.GetApprovalRequests(context.Background(), admin, 999)
	assert.True(t, IsNotFoundError(err))
}
