// Package scheduler runs the nightly mission lifecycle jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecomission/internal/events"
	"ecomission/internal/models"
	"ecomission/internal/repositories"

	"go.uber.org/zap"
)

// Job names
const (
	JobMaterialize = "materialize"
	JobClose       = "close"
	JobOpen        = "open"
)

// DefaultFailureThreshold stops a materialization run after this many failed templates
const DefaultFailureThreshold = 10

var (
	errAlreadyMaterialized = errors.New("mission already materialized")
	errInvalidCategory     = errors.New("no icon for mission category")
)

// IconResolver fills in assets for templates stored without them
type IconResolver interface {
	ResolveIcon(category models.MissionCategory) (string, bool)
	ResolveBanner(kind models.MissionKind) (string, bool)
}

// JobReport summarizes one job run
type JobReport struct {
	Job       string        `json:"job"`
	Day       time.Time     `json:"day"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Halted    bool          `json:"halted"`
	Duration  time.Duration `json:"duration"`
}

// Options configures a Lifecycle
type Options struct {
	Clock            func() time.Time
	Location         *time.Location
	FailureThreshold int
	Events           events.EventBus
	Logger           *zap.Logger
}

// Lifecycle moves missions through their daily states.
// Every item is committed in its own unit of work so one bad row never
// blocks the rest of the batch.
type Lifecycle struct {
	tx        repositories.Transactor
	templates repositories.TemplateRepository
	missions  repositories.MissionRepository
	icons     IconResolver
	opts      Options
}

// NewLifecycle creates the lifecycle jobs over the repositories
func NewLifecycle(repos *repositories.Collection, icons IconResolver, opts Options) *Lifecycle {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Lifecycle{
		tx:        repos.Tx,
		templates: repos.Templates,
		missions:  repos.Missions,
		icons:     icons,
		opts:      opts,
	}
}

// Run executes the named job
func (l *Lifecycle) Run(ctx context.Context, job string) (*JobReport, error) {
	switch job {
	case JobMaterialize:
		return l.MaterializeTemplates(ctx)
	case JobClose:
		return l.CloseDueMissions(ctx)
	case JobOpen:
		return l.OpenStartingMissions(ctx)
	default:
		return nil, fmt.Errorf("unknown job %q", job)
	}
}

func (l *Lifecycle) today() time.Time {
	return models.Today(l.opts.Clock(), l.opts.Location)
}

// MaterializeTemplates creates tomorrow's mission for every template
func (l *Lifecycle) MaterializeTemplates(ctx context.Context) (*JobReport, error) {
	start := time.Now()
	today := l.today()
	day := today.AddDate(0, 0, 1)
	report := &JobReport{Job: JobMaterialize, Day: day}
	logger := l.opts.Logger.With(zap.String("job", JobMaterialize), zap.Time("day", day))

	templates, err := l.templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if len(templates) == 0 {
		logger.Info("No mission templates to materialize")
		return l.finish(report, start), nil
	}

	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return l.finish(report, start), err
		}
		report.Processed++

		var created *models.Mission
		err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			exists, err := l.missions.ExistsForTemplateOn(ctx, tpl.ID, day)
			if err != nil {
				return err
			}
			if exists {
				return errAlreadyMaterialized
			}

			source, err := l.withAssets(tpl)
			if err != nil {
				return err
			}
			mission := models.NewScheduledMission(source, day, today)
			if err := l.missions.Create(ctx, mission); err != nil {
				return err
			}
			created = mission
			return nil
		})

		switch {
		case err == nil:
			report.Succeeded++
			l.publish(ctx, events.NewMissionEvent(events.MissionMaterialized, created.ID, created.TemplateID,
				string(created.Kind), string(created.Status), day))
		case errors.Is(err, errAlreadyMaterialized), errors.Is(err, repositories.ErrUniqueViolation):
			report.Skipped++
		default:
			report.Failed++
			logger.Warn("Failed to materialize template",
				zap.Int64("template_id", tpl.ID),
				zap.Error(err),
			)
		}

		if report.Failed >= l.opts.FailureThreshold {
			report.Halted = true
			logger.Error("Materialization halted after repeated failures, check the scheduler",
				zap.Int("failed", report.Failed),
				zap.Int("remaining", len(templates)-report.Processed),
			)
			break
		}
	}

	return l.finish(report, start), nil
}

// CloseDueMissions closes every OPEN mission whose deadline is today or earlier
func (l *Lifecycle) CloseDueMissions(ctx context.Context) (*JobReport, error) {
	today := l.today()
	missions, err := l.missions.ListOpenDueBy(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list due missions: %w", err)
	}
	return l.transition(ctx, JobClose, today, missions,
		models.MissionStatusOpen, models.MissionStatusClosed, events.MissionClosed), nil
}

// OpenStartingMissions opens every CLOSED scheduled mission starting today
func (l *Lifecycle) OpenStartingMissions(ctx context.Context) (*JobReport, error) {
	today := l.today()
	missions, err := l.missions.ListClosedScheduledStartingOn(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list starting missions: %w", err)
	}
	return l.transition(ctx, JobOpen, today, missions,
		models.MissionStatusClosed, models.MissionStatusOpen, events.MissionOpened), nil
}

func (l *Lifecycle) transition(ctx context.Context, job string, day time.Time, missions []*models.Mission, from, to models.MissionStatus, eventType string) *JobReport {
	start := time.Now()
	report := &JobReport{Job: job, Day: day}
	logger := l.opts.Logger.With(zap.String("job", job), zap.Time("day", day))

	if len(missions) == 0 {
		logger.Info("No missions to update")
		return l.finish(report, start)
	}

	for _, m := range missions {
		if ctx.Err() != nil {
			break
		}
		report.Processed++

		var changed bool
		err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			changed, err = l.missions.TransitionStatus(ctx, m.ID, from, to)
			return err
		})

		switch {
		case err != nil:
			report.Failed++
			logger.Error("Failed to update mission status",
				zap.Int64("mission_id", m.ID),
				zap.String("to", string(to)),
				zap.Error(err),
			)
		case !changed:
			report.Skipped++
		default:
			report.Succeeded++
			l.publish(ctx, events.NewMissionEvent(eventType, m.ID, m.TemplateID, string(m.Kind), string(to), day))
		}
	}

	return l.finish(report, start)
}

// withAssets returns the template with missing asset URLs resolved.
// A template without an icon whose category has none either cannot be materialized.
func (l *Lifecycle) withAssets(tpl *models.MissionTemplate) (*models.MissionTemplate, error) {
	if tpl.IconURL != "" && tpl.BannerURL != "" {
		return tpl, nil
	}
	resolved := *tpl
	if resolved.IconURL == "" {
		var ok bool
		if l.icons != nil {
			resolved.IconURL, ok = l.icons.ResolveIcon(tpl.Category)
		}
		if !ok {
			return nil, fmt.Errorf("%w %q", errInvalidCategory, tpl.Category)
		}
	}
	if resolved.BannerURL == "" && l.icons != nil {
		resolved.BannerURL, _ = l.icons.ResolveBanner(models.MissionKindScheduled)
	}
	return &resolved, nil
}

func (l *Lifecycle) publish(ctx context.Context, event events.Event) {
	if l.opts.Events == nil {
		return
	}
	if err := l.opts.Events.PublishAsync(ctx, event); err != nil {
		l.opts.Logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}
}

func (l *Lifecycle) finish(report *JobReport, start time.Time) *JobReport {
	report.Duration = time.Since(start)
	l.opts.Logger.Info("Scheduler job finished",
		zap.String("job", report.Job),
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("halted", report.Halted),
		zap.Duration("duration", report.Duration),
	)
	return report
}
