package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ecomission/internal/events"
	"ecomission/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_RecordsPendingParticipation(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	receipt, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.NoError(t, err)

	assert.Equal(t, models.ParticipationPending, receipt.Status)
	assert.Equal(t, missionID, receipt.MissionID)
	assert.Equal(t, submissionReceivedMessage, receipt.Message)

	m, _ := f.store.Mission(missionID)
	assert.Equal(t, 1, m.ParticipationCount)

	parts := f.store.Participations(missionID)
	require.Len(t, parts, 1)
	assert.Equal(t, student.UserID, parts[0].UserID)
	assert.Equal(t, models.ParticipationPending, parts[0].Status)
	require.NotNil(t, parts[0].ArtifactKey)
	assert.Contains(t, *parts[0].ArtifactKey, "_proof.jpg")

	files := f.store.Files()
	require.Len(t, files, 1)
	assert.Equal(t, *parts[0].ArtifactKey, files[0].FileKey)
	assert.Equal(t, 1, f.storage.uploadCount())

	assert.Equal(t, []string{events.ParticipationSubmitted}, f.bus.types())
}

func TestSubmit_WithoutArtifact(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	_, err := f.submissions.Submit(context.Background(), student, missionID, nil)
	require.NoError(t, err)

	parts := f.store.Participations(missionID)
	require.Len(t, parts, 1)
	assert.Nil(t, parts[0].ArtifactKey)
	assert.Empty(t, f.store.Files())
}

func TestSubmit_DuplicateKeepsCount(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	_, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.NoError(t, err)

	_, err = f.submissions.Submit(context.Background(), student, missionID, photo())
	require.Error(t, err)
	assert.True(t, IsDuplicateSubmissionError(err))

	m, _ := f.store.Mission(missionID)
	assert.Equal(t, 1, m.ParticipationCount)
	assert.Len(t, f.store.Participations(missionID), 1)
	assert.Equal(t, 1, f.storage.uploadCount())
}

func TestSubmit_DifferentStudentsEachCount(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	_, err := f.submissions.Submit(context.Background(), student, missionID, nil)
	require.NoError(t, err)
	_, err = f.submissions.Submit(context.Background(), otherStudent, missionID, nil)
	require.NoError(t, err)

	m, _ := f.store.Mission(missionID)
	assert.Equal(t, 2, m.ParticipationCount)
}

func TestSubmit_RejectsUnavailableMissions(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name     string
		status   models.MissionStatus
		start    time.Time
		deadline time.Time
	}{
		{"closed mission", models.MissionStatusClosed, today, today},
		{"deadline passed but still open", models.MissionStatusOpen, yesterday, yesterday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			missionID := f.seedMission(models.MissionKindScheduled, tt.status, tt.start, tt.deadline, 10)

			_, err := f.submissions.Submit(context.Background(), student, missionID, photo())
			require.Error(t, err)
			assert.True(t, IsInvalidStateError(err))
			assert.Equal(t, CodeMissionAlreadyClosed, GetServiceError(err).Code)

			assert.Empty(t, f.store.Participations(missionID))
			assert.Equal(t, 0, f.storage.uploadCount())
		})
	}
}

func TestSubmit_UnknownMission(t *testing.T) {
	f := newFixture()

	_, err := f.submissions.Submit(context.Background(), student, 404, nil)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestSubmit_RequiresStudentRole(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	for _, actor := range []models.Actor{admin, {UserID: 9, Role: "GUEST"}, {}} {
		_, err := f.submissions.Submit(context.Background(), actor, missionID, nil)
		require.Error(t, err)
		assert.True(t, IsForbiddenError(err), "role %q", actor.Role)
	}
	assert.Equal(t, 0, f.store.Calls("missions.GetByIDForUpdate"))
}

func TestSubmit_StorageFailureRollsBack(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)
	f.storage.uploadErr = fmt.Errorf("cloudinary down")

	_, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
	assert.True(t, GetServiceError(err).Retryable)

	m, _ := f.store.Mission(missionID)
	assert.Equal(t, 0, m.ParticipationCount)
	assert.Empty(t, f.store.Participations(missionID))
	assert.Empty(t, f.store.Files())
	assert.Empty(t, f.bus.types())

	// A retry after the outage succeeds
	f.storage.uploadErr = nil
	_, err = f.submissions.Submit(context.Background(), student, missionID, photo())
	require.NoError(t, err)
}

func TestSubmit_InvalidArtifactIsValidationError(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	_, err := f.submissions.Submit(context.Background(), student, missionID,
		&models.Artifact{FileName: "notes.exe", Data: []byte("MZ")})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrTypeValidation))
	assert.Empty(t, f.store.Participations(missionID))
}

func TestSubmit_CountFailureRollsBack(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)
	f.store.FailOn("missions.IncrementParticipationCount", func(int64) error { return errBoom })

	_, err := f.submissions.Submit(context.Background(), student, missionID, nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrTypeInternal))
	assert.Empty(t, f.store.Participations(missionID))
}

func TestSubmit_ConcurrentDuplicatesKeepOneParticipation(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)

	const attempts = 20
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.submissions.Submit(context.Background(), student, missionID, photo())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, IsDuplicateSubmissionError(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	m, _ := f.store.Mission(missionID)
	assert.Equal(t, 1, m.ParticipationCount)
	assert.Len(t, f.store.Participations(missionID), 1)
	assert.Len(t, f.store.Files(), 1)
}

func TestSubmit_UploadsBeforeLockingMission(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)
	locksDuringUpload := -1
	f.storage.onUpload = func() {
		locksDuringUpload = f.store.Calls("missions.GetByIDForUpdate")
	}

	_, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.NoError(t, err)

	assert.Equal(t, 0, locksDuringUpload)
	assert.Equal(t, 1, f.store.Calls("missions.GetByIDForUpdate"))
}

func TestSubmit_MissionClosedDuringUpload(t *testing.T) {
	f := newFixture()
	missionID := f.openMission(10)
	f.storage.onUpload = func() {
		_, err := f.repos.Missions.TransitionStatus(context.Background(), missionID,
			models.MissionStatusOpen, models.MissionStatusClosed)
		require.NoError(t, err)
	}

	_, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.Error(t, err)
	assert.Equal(t, CodeMissionAlreadyClosed, GetServiceError(err).Code)

	m, _ := f.store.Mission(missionID)
	assert.Equal(t, 0, m.ParticipationCount)
	assert.Empty(t, f.store.Participations(missionID))
	assert.Empty(t, f.store.Files())
	assert.Empty(t, f.bus.types())
}
