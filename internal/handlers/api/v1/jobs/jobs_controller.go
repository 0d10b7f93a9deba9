// file: internal/handlers/api/v1/jobs/jobs_controller.go
package jobs

import (
	"context"
	"net/http"

	"ecomission/internal/contextutils"
	"ecomission/internal/response"
	"ecomission/internal/scheduler"
	"ecomission/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Runner is the part of the scheduler the controller drives
type Runner interface {
	RunNow(ctx context.Context, job string) (*scheduler.JobReport, bool, error)
	LastReport(job string) (*scheduler.JobReport, bool)
}

// JobController exposes the lifecycle jobs to admins
type JobController struct {
	runner          Runner
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// RunResult is returned by a manual run
type RunResult struct {
	Ran    bool                 `json:"ran"`
	Report *scheduler.JobReport `json:"report,omitempty"`
}

// NewJobController creates a new job controller
func NewJobController(runner Runner, logger *zap.Logger, responseBuilder *response.Builder) *JobController {
	return &JobController{
		runner:          runner,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// Routes mounts the controller
func (c *JobController) Routes(r *mux.Router) {
	r.HandleFunc("/{job}", c.GetLastReport).Methods(http.MethodGet)
	r.HandleFunc("/{job}/run", c.RunJob).Methods(http.MethodPost)
}

// GetLastReport godoc
// @Summary Get the last report of a lifecycle job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param job path string true "materialize, close or open"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /api/admin/jobs/{job} [get]
func (c *JobController) GetLastReport(w http.ResponseWriter, r *http.Request) {
	job, ok := c.jobParam(w, r)
	if !ok {
		return
	}

	report, found := c.runner.LastReport(job)
	if !found {
		c.responseBuilder.WriteError(w, r, services.NewNotFoundError("job has not run since startup").WithDetail("job", job))
		return
	}
	c.responseBuilder.WriteSuccess(w, r, report)
}

// RunJob godoc
// @Summary Run a lifecycle job now
// @Description Skipped while another run of the same job holds the run lock.
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param job path string true "materialize, close or open"
// @Success 200 {object} response.APIResponse
// @Router /api/admin/jobs/{job}/run [post]
func (c *JobController) RunJob(w http.ResponseWriter, r *http.Request) {
	job, ok := c.jobParam(w, r)
	if !ok {
		return
	}

	report, ran, err := c.runner.RunNow(r.Context(), job)
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewInternalError("job run failed", err))
		return
	}

	contextutils.GetLogger(r.Context(), c.logger).Info("Lifecycle job triggered manually",
		zap.String("job", job),
		zap.Bool("ran", ran),
	)
	c.responseBuilder.WriteSuccess(w, r, RunResult{Ran: ran, Report: report})
}

func (c *JobController) jobParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	job := mux.Vars(r)["job"]
	switch job {
	case scheduler.JobMaterialize, scheduler.JobClose, scheduler.JobOpen:
		return job, true
	default:
		c.responseBuilder.WriteError(w, r, services.NewNotFoundError("unknown job").WithDetail("job", job))
		return "", false
	}
}
