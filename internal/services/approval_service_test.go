package services

import (
	"context"
	"sync"
	"testing"

	"ecomission/internal/events"
	"ecomission/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitted seeds an open mission worth points with one pending submission
func (f *fixture) submitted(t *testing.T, points int64) (missionID, participationID int64) {
	t.Helper()
	missionID = f.openMission(points)
	receipt, err := f.submissions.Submit(context.Background(), student, missionID, photo())
	require.NoError(t, err)
	return missionID, receipt.ParticipationID
}

func TestApprove_CreditsMissionPoints(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 1000)
	_, pid := f.submitted(t, 300)

	require.NoError(t, f.approvals.Approve(context.Background(), admin, pid))

	assert.Equal(t, int64(1300), f.store.Balance(student.UserID))
	p, err := f.repos.Participations.GetByID(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationApproved, p.Status)
	assert.NotNil(t, p.ReviewedAt)

	assert.Contains(t, f.bus.types(), events.ParticipationApproved)
}

func TestApprove_SecondApprovalIsInvalidState(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 1000)
	_, pid := f.submitted(t, 300)

	require.NoError(t, f.approvals.Approve(context.Background(), admin, pid))

	err := f.approvals.Approve(context.Background(), admin, pid)
	require.Error(t, err)
	assert.True(t, IsInvalidStateError(err))
	assert.Equal(t, CodeInvalidApprovalState, GetServiceError(err).Code)
	assert.Equal(t, int64(1300), f.store.Balance(student.UserID))
}

func TestApprove_ConcurrentReviewsCreditOnce(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 0)
	_, pid := f.submitted(t, 300)

	const reviewers = 10
	errs := make([]error, reviewers)
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.approvals.Approve(context.Background(), admin, pid)
		}(i)
	}
	wg.Wait()

	approved := 0
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		assert.Equal(t, CodeInvalidApprovalState, GetServiceError(err).Code)
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, int64(300), f.store.Balance(student.UserID))
	assert.Equal(t, 1, f.store.Calls("points.CreditPoints"))
}

func TestReject_LeavesBalanceUntouched(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 50)
	_, pid := f.submitted(t, 300)

	require.NoError(t, f.approvals.Reject(context.Background(), admin, pid))

	p, err := f.repos.Participations.GetByID(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationRejected, p.Status)
	assert.Equal(t, int64(50), f.store.Balance(student.UserID))
	assert.Equal(t, 0, f.store.Calls("points.CreditPoints"))
	assert.Contains(t, f.bus.types(), events.ParticipationRejected)
}

func TestReview_TerminalStatesCannotChange(t *testing.T) {
	tests := []struct {
		name   string
		first  func(f *fixture, pid int64) error
		second func(f *fixture, pid int64) error
	}{
		{
			name:   "approve after reject",
			first:  func(f *fixture, pid int64) error { return f.approvals.Reject(context.Background(), admin, pid) },
			second: func(f *fixture, pid int64) error { return f.approvals.Approve(context.Background(), admin, pid) },
		},
		{
			name:   "reject after approve",
			first:  func(f *fixture, pid int64) error { return f.approvals.Approve(context.Background(), admin, pid) },
			second: func(f *fixture, pid int64) error { return f.approvals.Reject(context.Background(), admin, pid) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.store.AddUser(student.UserID, 0)
			_, pid := f.submitted(t, 20)
			require.NoError(t, tt.first(f, pid))

			balance := f.store.Balance(student.UserID)
			updates := f.store.Calls("participations.UpdateStatus")

			err := tt.second(f, pid)
			require.Error(t, err)
			assert.True(t, IsInvalidStateError(err))
			assert.Equal(t, balance, f.store.Balance(student.UserID))
			assert.Equal(t, updates, f.store.Calls("participations.UpdateStatus"))
		})
	}
}

func TestApprove_CreditFailureRollsBackStatus(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 10)
	_, pid := f.submitted(t, 300)
	f.store.FailOn("points.CreditPoints", func(int64) error { return errBoom })

	err := f.approvals.Approve(context.Background(), admin, pid)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrTypeInternal))

	p, err := f.repos.Participations.GetByID(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationPending, p.Status)
	assert.Nil(t, p.ReviewedAt)
	assert.Equal(t, int64(10), f.store.Balance(student.UserID))
}

func TestApprove_UnknownUserRollsBack(t *testing.T) {
	f := newFixture()
	_, pid := f.submitted(t, 300)

	err := f.approvals.Approve(context.Background(), admin, pid)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	p, _ := f.repos.Participations.GetByID(context.Background(), pid)
	assert.Equal(t, models.ParticipationPending, p.Status)
}

func TestApprove_UnknownParticipation(t *testing.T) {
	f := newFixture()

	err := f.approvals.Approve(context.Background(), admin, 999)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestReview_RequiresAdminRole(t *testing.T) {
	f := newFixture()
	f.store.AddUser(student.UserID, 0)
	_, pid := f.submitted(t, 300)

	err := f.approvals.Approve(context.Background(), student, pid)
	require.Error(t, err)
	assert.True(t, IsForbiddenError(err))

	err = f.approvals.Reject(context.Background(), student, pid)
	require.Error(t, err)
	assert.True(t, IsForbiddenError(err))

	assert.Equal(t, 0, f.store.Calls("participations.GetByIDForUpdate"))
}
