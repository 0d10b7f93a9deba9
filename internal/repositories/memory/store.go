// Package memory is an in-process implementation of the repository
// interfaces. Units of work are serialized and roll back on error, which
// matches the row-locking behavior the services rely on from PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ecomission/internal/models"
	"ecomission/internal/repositories"
)

// FailFunc decides whether an operation on the entity with id fails
type FailFunc func(id int64) error

type state struct {
	templates      map[int64]models.MissionTemplate
	missions       map[int64]models.Mission
	participations map[int64]models.Participation
	files          map[int64]models.StoredFile
	balances       map[int64]int64
	nextID         int64
}

func (s *state) clone() *state {
	c := &state{
		templates:      make(map[int64]models.MissionTemplate, len(s.templates)),
		missions:       make(map[int64]models.Mission, len(s.missions)),
		participations: make(map[int64]models.Participation, len(s.participations)),
		files:          make(map[int64]models.StoredFile, len(s.files)),
		balances:       make(map[int64]int64, len(s.balances)),
		nextID:         s.nextID,
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.missions {
		c.missions[k] = v
	}
	for k, v := range s.participations {
		c.participations[k] = v
	}
	for k, v := range s.files {
		c.files[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

type txKey struct{}

// Store holds every table in memory
type Store struct {
	txMu sync.Mutex // one unit of work at a time

	mu      sync.Mutex
	data    *state
	now     func() time.Time
	failers map[string]FailFunc
	calls   map[string]int
}

// NewStore creates an empty store whose timestamps come from now
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		data: &state{
			templates:      map[int64]models.MissionTemplate{},
			missions:       map[int64]models.Mission{},
			participations: map[int64]models.Participation{},
			files:          map[int64]models.StoredFile{},
			balances:       map[int64]int64{},
		},
		now:     now,
		failers: map[string]FailFunc{},
		calls:   map[string]int{},
	}
}

// Collection exposes the store through the repository interfaces
func (s *Store) Collection() *repositories.Collection {
	return &repositories.Collection{
		Templates:      &templateRepo{s},
		Missions:       &missionRepo{s},
		Participations: &participationRepo{s},
		Files:          &fileRepo{s},
		Points:         &pointRepo{s},
		Tx:             s,
	}
}

// FailOn makes op call fn before touching state; a non-nil result is returned as the op's error
func (s *Store) FailOn(op string, fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failers[op] = fn
}

// Calls reports how many times op was invoked
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddUser registers a user with a starting balance
func (s *Store) AddUser(userID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.balances[userID] = balance
}

// Balance returns the user's current point balance
func (s *Store) Balance(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.balances[userID]
}

// Mission returns a copy of the stored mission
func (s *Store) Mission(id int64) (models.Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data.missions[id]
	return m, ok
}

// Participations returns copies of every participation of a mission
func (s *Store) Participations(missionID int64) []models.Participation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Participation
	for _, p := range s.data.participations {
		if p.MissionID == missionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Missions returns copies of every stored mission ordered by id
func (s *Store) Missions() []models.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Mission, 0, len(s.data.missions))
	for _, m := range s.data.missions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Files returns copies of every recorded file
func (s *Store) Files() []models.StoredFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StoredFile, 0, len(s.data.files))
	for _, f := range s.data.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithinTransaction runs fn as one unit of work; state is restored when fn fails
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// begin records the call and runs the failure hook; callers hold s.mu afterwards
func (s *Store) begin(op string, id int64) error {
	s.mu.Lock()
	s.calls[op]++
	if fn, ok := s.failers[op]; ok {
		if err := fn(id); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	return nil
}

func (s *Store) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

// ===============================
// TEMPLATES
// ===============================

type templateRepo struct{ s *Store }

func (r *templateRepo) Create(ctx context.Context, tpl *models.MissionTemplate) error {
	if err := r.s.begin("templates.Create", 0); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	tpl.ID = r.s.id()
	tpl.CreatedAt = r.s.now()
	r.s.data.templates[tpl.ID] = *tpl
	return nil
}

func (r *templateRepo) GetByID(ctx context.Context, id int64) (*models.MissionTemplate, error) {
	if err := r.s.begin("templates.GetByID", id); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	tpl, ok := r.s.data.templates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &tpl, nil
}

func (r *templateRepo) List(ctx context.Context) ([]*models.MissionTemplate, error) {
	if err := r.s.begin("templates.List", 0); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	out := make([]*models.MissionTemplate, 0, len(r.s.data.templates))
	for _, tpl := range r.s.data.templates {
		tpl := tpl
		out = append(out, &tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===============================
// MISSIONS
// ===============================

type missionRepo struct{ s *Store }

func (r *missionRepo) Create(ctx context.Context, mission *models.Mission) error {
	var templateID int64
	if mission.TemplateID != nil {
		templateID = *mission.TemplateID
	}
	if err := r.s.begin("missions.Create", templateID); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if mission.TemplateID != nil {
		for _, m := range r.s.data.missions {
			if m.TemplateID != nil && *m.TemplateID == templateID && m.StartDate.Equal(models.DateOf(mission.StartDate)) {
				return fmt.Errorf("mission for template %d: %w", templateID, repositories.ErrUniqueViolation)
			}
		}
	}

	mission.ID = r.s.id()
	mission.StartDate = models.DateOf(mission.StartDate)
	mission.Deadline = models.DateOf(mission.Deadline)
	mission.ParticipationCount = 0
	mission.CreatedAt = r.s.now()
	mission.UpdatedAt = mission.CreatedAt
	stored := *mission
	if mission.TemplateID != nil {
		stored.TemplateID = &templateID
	}
	r.s.data.missions[mission.ID] = stored
	return nil
}

func (r *missionRepo) GetByID(ctx context.Context, id int64) (*models.Mission, error) {
	if err := r.s.begin("missions.GetByID", id); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.get(id)
}

func (r *missionRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Mission, error) {
	if err := r.s.begin("missions.GetByIDForUpdate", id); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.get(id)
}

func (r *missionRepo) get(id int64) (*models.Mission, error) {
	m, ok := r.s.data.missions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &m, nil
}

func (r *missionRepo) ExistsForTemplateOn(ctx context.Context, templateID int64, day time.Time) (bool, error) {
	if err := r.s.begin("missions.ExistsForTemplateOn", templateID); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()

	for _, m := range r.s.data.missions {
		if m.TemplateID != nil && *m.TemplateID == templateID && m.StartDate.Equal(models.DateOf(day)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *missionRepo) IncrementParticipationCount(ctx context.Context, id int64) error {
	if err := r.s.begin("missions.IncrementParticipationCount", id); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	m, ok := r.s.data.missions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	m.ParticipationCount++
	m.UpdatedAt = r.s.now()
	r.s.data.missions[id] = m
	return nil
}

func (r *missionRepo) TransitionStatus(ctx context.Context, id int64, from, to models.MissionStatus) (bool, error) {
	if err := r.s.begin("missions.TransitionStatus", id); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()

	m, ok := r.s.data.missions[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = r.s.now()
	r.s.data.missions[id] = m
	return true, nil
}

func (r *missionRepo) ListByStatusAndKind(ctx context.Context, status models.MissionStatus, kind models.MissionKind) ([]*models.Mission, error) {
	return r.list("missions.ListByStatusAndKind", func(m *models.Mission) bool {
		return m.Status == status && m.Kind == kind
	}, func(a, b *models.Mission) bool {
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		return a.ID > b.ID
	})
}

func (r *missionRepo) ListOpenDueBy(ctx context.Context, day time.Time) ([]*models.Mission, error) {
	d := models.DateOf(day)
	return r.list("missions.ListOpenDueBy", func(m *models.Mission) bool {
		return m.Status == models.MissionStatusOpen && !m.Deadline.After(d)
	}, byID)
}

func (r *missionRepo) ListClosedScheduledStartingOn(ctx context.Context, day time.Time) ([]*models.Mission, error) {
	d := models.DateOf(day)
	return r.list("missions.ListClosedScheduledStartingOn", func(m *models.Mission) bool {
		return m.Status == models.MissionStatusClosed && m.Kind == models.MissionKindScheduled && m.StartDate.Equal(d)
	}, byID)
}

func (r *missionRepo) ListOpenByDeadline(ctx context.Context) ([]*models.Mission, error) {
	return r.list("missions.ListOpenByDeadline", func(m *models.Mission) bool {
		return m.Status == models.MissionStatusOpen
	}, byDeadline)
}

func (r *missionRepo) ListTerminated(ctx context.Context, today time.Time) ([]*models.Mission, error) {
	d := models.DateOf(today)
	return r.list("missions.ListTerminated", func(m *models.Mission) bool {
		return m.Status == models.MissionStatusClosed && m.Deadline.Before(d) && !r.hasPending(m.ID)
	}, func(a, b *models.Mission) bool { return byDeadline(b, a) })
}

func (r *missionRepo) ListWithPendingParticipations(ctx context.Context) ([]*models.Mission, error) {
	return r.list("missions.ListWithPendingParticipations", func(m *models.Mission) bool {
		return r.hasPending(m.ID)
	}, byDeadline)
}

func (r *missionRepo) hasPending(missionID int64) bool {
	for _, p := range r.s.data.participations {
		if p.MissionID == missionID && p.Status == models.ParticipationPending {
			return true
		}
	}
	return false
}

func (r *missionRepo) list(op string, keep func(*models.Mission) bool, less func(a, b *models.Mission) bool) ([]*models.Mission, error) {
	if err := r.s.begin(op, 0); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	var out []*models.Mission
	for _, m := range r.s.data.missions {
		m := m
		if keep(&m) {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func byID(a, b *models.Mission) bool { return a.ID < b.ID }

func byDeadline(a, b *models.Mission) bool {
	if !a.Deadline.Equal(b.Deadline) {
		return a.Deadline.Before(b.Deadline)
	}
	return a.ID < b.ID
}

// ===============================
// PARTICIPATIONS
// ===============================

type participationRepo struct{ s *Store }

func (r *participationRepo) Create(ctx context.Context, p *models.Participation) error {
	if err := r.s.begin("participations.Create", p.MissionID); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.participations {
		if existing.MissionID == p.MissionID && existing.UserID == p.UserID {
			return fmt.Errorf("participation of user %d: %w", p.UserID, repositories.ErrUniqueViolation)
		}
	}

	p.ID = r.s.id()
	p.CreatedAt = r.s.now()
	r.s.data.participations[p.ID] = *p
	return nil
}

func (r *participationRepo) GetByID(ctx context.Context, id int64) (*models.Participation, error) {
	if err := r.s.begin("participations.GetByID", id); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.get(id)
}

func (r *participationRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Participation, error) {
	if err := r.s.begin("participations.GetByIDForUpdate", id); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.get(id)
}

// get returns the participation joined with its mission
func (r *participationRepo) get(id int64) (*models.Participation, error) {
	p, ok := r.s.data.participations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.join(p), nil
}

func (r *participationRepo) join(p models.Participation) *models.Participation {
	if m, ok := r.s.data.missions[p.MissionID]; ok {
		p.MissionTitle = m.Title
		p.MissionPoint = m.PointValue
		p.MissionCategory = m.Category
		p.MissionIconURL = m.IconURL
		p.MissionKind = m.Kind
	}
	return &p
}

func (r *participationRepo) ExistsForUser(ctx context.Context, missionID, userID int64) (bool, error) {
	if err := r.s.begin("participations.ExistsForUser", missionID); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()

	for _, p := range r.s.data.participations {
		if p.MissionID == missionID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *participationRepo) UpdateStatus(ctx context.Context, id int64, status models.ParticipationStatus, reviewedAt time.Time) error {
	if err := r.s.begin("participations.UpdateStatus", id); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	p, ok := r.s.data.participations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Status = status
	p.ReviewedAt = &reviewedAt
	r.s.data.participations[id] = p
	return nil
}

func (r *participationRepo) SetArtifactKey(ctx context.Context, id int64, key string) error {
	if err := r.s.begin("participations.SetArtifactKey", id); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	p, ok := r.s.data.participations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.ArtifactKey = &key
	r.s.data.participations[id] = p
	return nil
}

func (r *participationRepo) ListByUserAndStatus(ctx context.Context, userID int64, statuses ...models.ParticipationStatus) ([]*models.Participation, error) {
	if err := r.s.begin("participations.ListByUserAndStatus", userID); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	var out []*models.Participation
	for _, p := range r.s.data.participations {
		if p.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, p.Status) {
			continue
		}
		out = append(out, r.join(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *participationRepo) ListPendingByMission(ctx context.Context, missionID int64) ([]*models.Participation, error) {
	if err := r.s.begin("participations.ListPendingByMission", missionID); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	var out []*models.Participation
	for _, p := range r.s.data.participations {
		if p.MissionID == missionID && p.Status == models.ParticipationPending {
			out = append(out, r.join(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *participationRepo) CountByMission(ctx context.Context, missionID int64) (int, error) {
	if err := r.s.begin("participations.CountByMission", missionID); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()

	count := 0
	for _, p := range r.s.data.participations {
		if p.MissionID == missionID {
			count++
		}
	}
	return count, nil
}

func containsStatus(statuses []models.ParticipationStatus, s models.ParticipationStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ===============================
// FILES AND POINTS
// ===============================

type fileRepo struct{ s *Store }

func (r *fileRepo) Create(ctx context.Context, file *models.StoredFile) error {
	if err := r.s.begin("files.Create", 0); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	file.ID = r.s.id()
	file.CreatedAt = r.s.now()
	r.s.data.files[file.ID] = *file
	return nil
}

func (r *fileRepo) GetByMission(ctx context.Context, missionID int64) (*models.StoredFile, error) {
	if err := r.s.begin("files.GetByMission", missionID); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	var found *models.StoredFile
	for _, f := range r.s.data.files {
		f := f
		if f.MissionID != nil && *f.MissionID == missionID && (found == nil || f.ID > found.ID) {
			found = &f
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

type pointRepo struct{ s *Store }

func (r *pointRepo) CreditPoints(ctx context.Context, userID int64, amount int64) error {
	if err := r.s.begin("points.CreditPoints", userID); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	balance, ok := r.s.data.balances[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, repositories.ErrNotFound)
	}
	r.s.data.balances[userID] = balance + amount
	return nil
}

func (r *pointRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	if err := r.s.begin("points.GetBalance", userID); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()

	balance, ok := r.s.data.balances[userID]
	if !ok {
		return 0, fmt.Errorf("user %d: %w", userID, repositories.ErrNotFound)
	}
	return balance, nil
}
