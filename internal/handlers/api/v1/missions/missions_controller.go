// Package missions serves the student-facing mission endpoints
package missions

import (
	"errors"
	"net/http"

	"ecomission/internal/contextutils"
	"ecomission/internal/models"
	"ecomission/internal/response"
	"ecomission/internal/services"
	"ecomission/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MissionController handles /api/missions
type MissionController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
	maxUploadBytes    int64
}

// NewMissionController creates the student mission controller
func NewMissionController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *MissionController {
	return &MissionController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
		maxUploadBytes:    serviceCollection.Config.Cloudinary.MaxFileSize,
	}
}

// Routes mounts the controller; submit is wrapped by the extra submitMiddlewares
func (c *MissionController) Routes(r *mux.Router, submitMiddlewares ...func(http.Handler) http.Handler) {
	var submit http.Handler = http.HandlerFunc(c.Submit)
	for i := len(submitMiddlewares) - 1; i >= 0; i-- {
		submit = submitMiddlewares[i](submit)
	}

	r.HandleFunc("/regular", c.ListRegularMissions).Methods(http.MethodGet)
	r.HandleFunc("/event", c.ListEventMissions).Methods(http.MethodGet)
	r.HandleFunc("/pending", c.ListPending).Methods(http.MethodGet)
	r.HandleFunc("/history", c.ListHistory).Methods(http.MethodGet)
	r.HandleFunc("/history/{participationId}", c.GetHistoryDetail).Methods(http.MethodGet)
	r.HandleFunc("/{missionId}", c.GetMission).Methods(http.MethodGet)
	r.Handle("/{missionId}/submit", submit).Methods(http.MethodPost)
}

// ListRegularMissions godoc
// @Summary List open scheduled missions
// @Tags Missions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/missions/regular [get]
func (c *MissionController) ListRegularMissions(w http.ResponseWriter, r *http.Request) {
	c.listOpen(w, r, models.MissionKindScheduled)
}

// ListEventMissions godoc
// @Summary List open event missions
// @Tags Missions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/missions/event [get]
func (c *MissionController) ListEventMissions(w http.ResponseWriter, r *http.Request) {
	c.listOpen(w, r, models.MissionKindEvent)
}

func (c *MissionController) listOpen(w http.ResponseWriter, r *http.Request, kind models.MissionKind) {
	actor, _ := contextutils.GetActor(r.Context())
	missions, err := c.serviceCollection.Missions.ListOpenMissions(r.Context(), actor, kind)
	if err != nil {
		c.handleServiceError(w, r, err, "list open missions")
		return
	}
	c.responseBuilder.WriteSuccess(w, r, missions)
}

// GetMission godoc
// @Summary Get mission detail
// @Tags Missions
// @Produce json
// @Security BearerAuth
// @Param missionId path int true "Mission ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /api/missions/{missionId} [get]
func (c *MissionController) GetMission(w http.ResponseWriter, r *http.Request) {
	missionID, err := utils.PathID(r, "missionId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), nil))
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	detail, err := c.serviceCollection.Missions.GetMissionDetail(r.Context(), actor, missionID)
	if err != nil {
		c.handleServiceError(w, r, err, "get mission detail")
		return
	}
	c.responseBuilder.WriteSuccess(w, r, detail)
}

// Submit godoc
// @Summary Submit proof for a mission
// @Tags Missions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param missionId path int true "Mission ID"
// @Param file formData file false "Proof photo"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse "Already submitted or mission closed"
// @Failure 503 {object} response.APIResponse "Storage unavailable, retry"
// @Router /api/missions/{missionId}/submit [post]
func (c *MissionController) Submit(w http.ResponseWriter, r *http.Request) {
	missionID, err := utils.PathID(r, "missionId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), nil))
		return
	}

	artifact, err := utils.ReadArtifact(w, r, "file", c.maxUploadBytes)
	if err != nil {
		c.writeUploadError(w, r, err)
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	receipt, err := c.serviceCollection.Submissions.Submit(r.Context(), actor, missionID, artifact)
	if err != nil {
		c.handleServiceError(w, r, err, "submit mission")
		return
	}

	contextutils.GetLogger(r.Context(), c.logger).Info("Mission submitted",
		zap.Int64("mission_id", missionID),
		zap.Int64("participation_id", receipt.ParticipationID),
	)
	c.responseBuilder.WriteCreated(w, r, receipt)
}

// ListPending godoc
// @Summary List the caller's pending submissions
// @Tags Missions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/missions/pending [get]
func (c *MissionController) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, _ := contextutils.GetActor(r.Context())
	items, err := c.serviceCollection.Missions.ListPendingSubmissions(r.Context(), actor)
	if err != nil {
		c.handleServiceError(w, r, err, "list pending submissions")
		return
	}
	c.responseBuilder.WriteSuccess(w, r, items)
}

// ListHistory godoc
// @Summary List the caller's reviewed submissions
// @Tags Missions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/missions/history [get]
func (c *MissionController) ListHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := contextutils.GetActor(r.Context())
	items, err := c.serviceCollection.Missions.ListHistory(r.Context(), actor)
	if err != nil {
		c.handleServiceError(w, r, err, "list history")
		return
	}
	c.responseBuilder.WriteSuccess(w, r, items)
}

// GetHistoryDetail godoc
// @Summary Get one of the caller's submissions
// @Tags Missions
// @Produce json
// @Security BearerAuth
// @Param participationId path int true "Participation ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /api/missions/history/{participationId} [get]
func (c *MissionController) GetHistoryDetail(w http.ResponseWriter, r *http.Request) {
	participationID, err := utils.PathID(r, "participationId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), nil))
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	detail, err := c.serviceCollection.Missions.GetHistoryDetail(r.Context(), actor, participationID)
	if err != nil {
		c.handleServiceError(w, r, err, "get history detail")
		return
	}
	c.responseBuilder.WriteSuccess(w, r, detail)
}

func (c *MissionController) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, utils.ErrFileTooLarge) {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), err).
			WithDetail("max_bytes", c.maxUploadBytes))
		return
	}
	c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid upload", err))
}

func (c *MissionController) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	contextutils.GetLogger(r.Context(), c.logger).Debug("Mission service error",
		zap.Error(err),
		zap.String("operation", operation),
	)
	c.responseBuilder.WriteError(w, r, err)
}
