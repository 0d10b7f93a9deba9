package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"ecomission/internal/config"
	"ecomission/internal/events"
	"ecomission/internal/models"
	"ecomission/internal/repositories"
	"ecomission/internal/repositories/memory"
	"ecomission/internal/storage"

	"go.uber.org/zap"
)

var (
	testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	today   = models.DateOf(testNow)

	student      = models.Actor{UserID: 7, Role: models.RoleStudent}
	otherStudent = models.Actor{UserID: 8, Role: models.RoleStudent}
	admin        = models.Actor{UserID: 1, Role: models.RoleAdmin}
)

// fakeStorage validates like the real storage and keeps uploads in memory
type fakeStorage struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	uploadErr error
	signErr   error
	onUpload  func()
	cfg       config.CloudinaryConfig
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploads: map[string][]byte{},
		cfg: config.CloudinaryConfig{
			MaxFileSize:    1 << 20,
			AllowedFormats: []string{"jpg", "jpeg", "png"},
		},
	}
}

func (f *fakeStorage) MetadataFor(artifact *models.Artifact) (*models.ArtifactMetadata, error) {
	return storage.NewUnavailable(f.cfg).MetadataFor(artifact)
}

func (f *fakeStorage) UploadArtifact(ctx context.Context, key string, data []byte, contentType string) error {
	if f.onUpload != nil {
		f.onUpload()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStorage) SignedURLFor(ctx context.Context, key string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStorage) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// recordingBus captures published events without delivering them
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	return b.PublishAsync(ctx, event)
}

func (b *recordingBus) PublishAsync(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.EventHandler) error        { return nil }
func (b *recordingBus) SubscribePattern(string, events.EventHandler) error { return nil }
func (b *recordingBus) Start(context.Context) error                        { return nil }
func (b *recordingBus) Stop(context.Context) error                         { return nil }
func (b *recordingBus) Health() error                                      { return nil }
func (b *recordingBus) Stats() *events.EventBusStats                       { return &events.EventBusStats{} }

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.GetEventType())
	}
	return out
}

// fixture bundles a store with services built over it
type fixture struct {
	store   *memory.Store
	repos   *repositories.Collection
	storage *fakeStorage
	bus     *recordingBus
	opts    Options

	submissions SubmissionService
	approvals   ApprovalService
	missions    MissionService
	management  ManagementService
}

func newFixture() *fixture {
	store := memory.NewStore(func() time.Time { return testNow })
	repos := store.Collection()
	fs := newFakeStorage()
	bus := &recordingBus{}
	opts := Options{
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
		Events:   bus,
		Logger:   zap.NewNop(),
	}

	return &fixture{
		store:       store,
		repos:       repos,
		storage:     fs,
		bus:         bus,
		opts:        opts,
		submissions: NewSubmissionService(repos.Tx, repos.Missions, repos.Participations, repos.Files, fs, opts),
		approvals:   NewApprovalService(repos.Tx, repos.Participations, repos.Points, opts),
		missions:    NewMissionService(repos.Missions, repos.Participations, repos.Files, fs, nil, opts),
		management: NewManagementService(repos.Tx, repos.Templates, repos.Missions, repos.Participations,
			repos.Files, fs, DefaultIconResolver(), opts),
	}
}

// seedMission stores a mission and returns its id
func (f *fixture) seedMission(kind models.MissionKind, status models.MissionStatus, start, deadline time.Time, points int64) int64 {
	m := &models.Mission{
		Title:      "Bring a tumbler",
		Content:    "Use a tumbler at the campus cafe",
		PointValue: points,
		Kind:       kind,
		StartDate:  start,
		Deadline:   deadline,
		Category:   models.CategoryTumbler,
		IconURL:    "https://icons.example.com/tumbler.png",
		Status:     status,
	}
	if err := f.repos.Missions.Create(context.Background(), m); err != nil {
		panic(err)
	}
	return m.ID
}

func (f *fixture) openMission(points int64) int64 {
	return f.seedMission(models.MissionKindScheduled, models.MissionStatusOpen, today, today, points)
}

func photo() *models.Artifact {
	return &models.Artifact{FileName: "proof.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}
}

var errBoom = errors.New("boom")
