package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ecomission/internal/models"
	"ecomission/internal/repositories"
	"ecomission/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var seoul = time.FixedZone("KST", 9*60*60)

// at returns a clock fixed on 2025-03-10 at hh:mm Seoul time
func at(hour, minute int) func() time.Time {
	return func() time.Time { return time.Date(2025, 3, 10, hour, minute, 0, 0, seoul) }
}

var (
	day0 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	day1 = day0.AddDate(0, 0, 1)
)

type staticIcons struct{}

func (staticIcons) ResolveIcon(c models.MissionCategory) (string, bool) {
	return "https://icons.example.com/" + string(c), true
}

func (staticIcons) ResolveBanner(k models.MissionKind) (string, bool) {
	return "https://banners.example.com/" + string(k), true
}

type noIcons struct{}

func (noIcons) ResolveIcon(models.MissionCategory) (string, bool) { return "", false }
func (noIcons) ResolveBanner(models.MissionKind) (string, bool)   { return "", false }

func newLifecycle(store *memory.Store, clock func() time.Time) *Lifecycle {
	return NewLifecycle(store.Collection(), staticIcons{}, Options{
		Clock:    clock,
		Location: seoul,
		Logger:   zap.NewNop(),
	})
}

func addTemplate(t *testing.T, repos *repositories.Collection, title string, points int64) *models.MissionTemplate {
	t.Helper()
	tpl := &models.MissionTemplate{
		Title:      title,
		PointValue: points,
		Category:   models.CategoryTumbler,
	}
	require.NoError(t, repos.Templates.Create(context.Background(), tpl))
	return tpl
}

func addMission(t *testing.T, repos *repositories.Collection, kind models.MissionKind, status models.MissionStatus, start, deadline time.Time) int64 {
	t.Helper()
	m := &models.Mission{
		Title:      "mission",
		PointValue: 10,
		Kind:       kind,
		StartDate:  start,
		Deadline:   deadline,
		Category:   models.CategoryEtc,
		Status:     status,
	}
	require.NoError(t, repos.Missions.Create(context.Background(), m))
	return m.ID
}

func TestMaterializeTemplates_CreatesClosedMissionForTomorrow(t *testing.T) {
	store := memory.NewStore(nil)
	tpl := addTemplate(t, store.Collection(), "Bring a tumbler", 10)

	report, err := newLifecycle(store, at(23, 30)).MaterializeTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, day1, report.Day)

	missions := store.Missions()
	require.Len(t, missions, 1)
	m := missions[0]
	assert.Equal(t, models.MissionStatusClosed, m.Status)
	assert.Equal(t, int64(10), m.PointValue)
	assert.Equal(t, models.MissionKindScheduled, m.Kind)
	assert.Equal(t, day1, m.StartDate)
	assert.Equal(t, day1, m.Deadline)
	require.NotNil(t, m.TemplateID)
	assert.Equal(t, tpl.ID, *m.TemplateID)
	assert.Equal(t, "https://icons.example.com/TUMBLER", m.IconURL)
}

func TestMaterializeTemplates_IsIdempotent(t *testing.T) {
	store := memory.NewStore(nil)
	addTemplate(t, store.Collection(), "a", 10)
	addTemplate(t, store.Collection(), "b", 20)
	lc := newLifecycle(store, at(23, 30))

	_, err := lc.MaterializeTemplates(context.Background())
	require.NoError(t, err)

	report, err := lc.MaterializeTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, store.Missions(), 2)
}

func TestMaterializeTemplates_IsolatesFailures(t *testing.T) {
	store := memory.NewStore(nil)
	repos := store.Collection()
	good := addTemplate(t, repos, "good", 10)
	bad := addTemplate(t, repos, "bad", 10)
	store.FailOn("missions.Create", func(templateID int64) error {
		if templateID == bad.ID {
			return errors.New("disk full")
		}
		return nil
	})

	report, err := newLifecycle(store, at(23, 30)).MaterializeTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Halted)

	missions := store.Missions()
	require.Len(t, missions, 1)
	assert.Equal(t, good.ID, *missions[0].TemplateID)
}

func TestMaterializeTemplates_UnresolvableCategoryFails(t *testing.T) {
	store := memory.NewStore(nil)
	repos := store.Collection()
	require.NoError(t, repos.Templates.Create(context.Background(), &models.MissionTemplate{
		Title:      "unknown",
		PointValue: 10,
		Category:   "BOGUS",
	}))
	withIcon := &models.MissionTemplate{
		Title:      "custom icon",
		PointValue: 10,
		Category:   "BOGUS",
		IconURL:    "https://icons.example.com/custom.png",
	}
	require.NoError(t, repos.Templates.Create(context.Background(), withIcon))

	lc := NewLifecycle(repos, noIcons{}, Options{Clock: at(23, 30), Location: seoul, Logger: zap.NewNop()})
	report, err := lc.MaterializeTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)

	missions := store.Missions()
	require.Len(t, missions, 1)
	assert.Equal(t, withIcon.ID, *missions[0].TemplateID)
	assert.Equal(t, withIcon.IconURL, missions[0].IconURL)
}

func TestMaterializeTemplates_HaltsAfterThreshold(t *testing.T) {
	store := memory.NewStore(nil)
	repos := store.Collection()
	for i := 0; i < 15; i++ {
		addTemplate(t, repos, fmt.Sprintf("tpl-%d", i), 10)
	}
	store.FailOn("missions.Create", func(int64) error { return errors.New("db down") })

	report, err := newLifecycle(store, at(23, 30)).MaterializeTemplates(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Halted)
	assert.Equal(t, DefaultFailureThreshold, report.Failed)
	assert.Equal(t, DefaultFailureThreshold, report.Processed)
	assert.Equal(t, DefaultFailureThreshold, store.Calls("missions.Create"))
	assert.Empty(t, store.Missions())
}

func TestMaterializeTemplates_NoTemplates(t *testing.T) {
	store := memory.NewStore(nil)

	report, err := newLifecycle(store, at(23, 30)).MaterializeTemplates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.False(t, report.Halted)
}

func TestCloseDueMissions(t *testing.T) {
	store := memory.NewStore(nil)
	repos := store.Collection()
	yesterday := day0.AddDate(0, 0, -1)

	overdue := addMission(t, repos, models.MissionKindEvent, models.MissionStatusOpen, yesterday, yesterday)
	dueToday := addMission(t, repos, models.MissionKindScheduled, models.MissionStatusOpen, day0, day0)
	running := addMission(t, repos, models.MissionKindEvent, models.MissionStatusOpen, day0, day1)

	report, err := newLifecycle(store, at(23, 55)).CloseDueMissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	for id, want := range map[int64]models.MissionStatus{
		overdue:  models.MissionStatusClosed,
		dueToday: models.MissionStatusClosed,
		running:  models.MissionStatusOpen,
	} {
		m, _ := store.Mission(id)
		assert.Equal(t, want, m.Status, "mission %d", id)
	}
}

func TestCloseDueMissions_ContinuesPastFailures(t *testing.T) {
	store := memory.NewStore(nil)
	repos := store.Collection()
	first := addMission(t, repos, models.MissionKindScheduled, models.MissionStatusOpen, day0, day0)
	second := addMission(t, repos, models.MissionKindScheduled, models.MissionStatusOpen, day0, day0)
	store.FailOn("missions.TransitionStatus", func(id int64) error {
		if id == first {
			return errors.New("lock timeout")
		}
		return nil
	})

	report, err := newLifecycle(store, at(23, 55)).CloseDueMissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)

	m, _ := store.Mission(first)
	assert.Equal(t, models.MissionStatusOpen, m.Status)
	m, _ = store.Mission(second)
	assert.Equal(t, models.MissionStatusClosed, m.Status)
}

func TestOpenStartingMissions(t *testing.T) {
	store := memory.NewStore(nil)
	repos := store.Collection()

	starting := addMission(t, repos, models.MissionKindScheduled, models.MissionStatusClosed, day0, day0)
	later := addMission(t, repos, models.MissionKindScheduled, models.MissionStatusClosed, day1, day1)
	event := addMission(t, repos, models.MissionKindEvent, models.MissionStatusClosed, day0, day1)

	report, err := newLifecycle(store, at(0, 0)).OpenStartingMissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	m, _ := store.Mission(starting)
	assert.Equal(t, models.MissionStatusOpen, m.Status)
	m, _ = store.Mission(later)
	assert.Equal(t, models.MissionStatusClosed, m.Status)
	m, _ = store.Mission(event)
	assert.Equal(t, models.MissionStatusClosed, m.Status)
}

func TestNightlyCycle(t *testing.T) {
	store := memory.NewStore(nil)
	addTemplate(t, store.Collection(), "Bring a tumbler", 10)

	_, err := newLifecycle(store, at(23, 30)).MaterializeTemplates(context.Background())
	require.NoError(t, err)

	midnight := func() time.Time { return time.Date(2025, 3, 11, 0, 0, 0, 0, seoul) }
	_, err = newLifecycle(store, midnight).OpenStartingMissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusOpen, store.Missions()[0].Status)

	closing := func() time.Time { return time.Date(2025, 3, 11, 23, 55, 0, 0, seoul) }
	_, err = newLifecycle(store, closing).CloseDueMissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusClosed, store.Missions()[0].Status)
}

func TestRun_UnknownJob(t *testing.T) {
	_, err := newLifecycle(memory.NewStore(nil), at(1, 0)).Run(context.Background(), "reindex")
	assert.Error(t, err)
}
