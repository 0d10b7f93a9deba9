// Package admin serves the admin mission management endpoints
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ecomission/internal/contextutils"
	"ecomission/internal/models"
	"ecomission/internal/response"
	"ecomission/internal/services"
	"ecomission/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

// AdminController handles /api/admin/missions
type AdminController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
	maxUploadBytes    int64
}

// NewAdminController creates the admin mission controller
func NewAdminController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AdminController {
	return &AdminController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
		maxUploadBytes:    serviceCollection.Config.Cloudinary.MaxFileSize,
	}
}

// Routes mounts the controller
func (c *AdminController) Routes(r *mux.Router) {
	r.HandleFunc("/regular", c.CreateTemplate).Methods(http.MethodPost)
	r.HandleFunc("/event", c.CreateEventMission).Methods(http.MethodPost)
	r.HandleFunc("/deadline", c.ListDeadlineMissions).Methods(http.MethodGet)
	r.HandleFunc("/termination", c.ListTerminatedMissions).Methods(http.MethodGet)
	r.HandleFunc("/pending", c.ListPendingApprovals).Methods(http.MethodGet)
	r.HandleFunc("/category", c.ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/request/{missionId}", c.GetApprovalRequests).Methods(http.MethodGet)
	r.HandleFunc("/request/approve/{participationId}", c.Approve).Methods(http.MethodPatch)
	r.HandleFunc("/request/reject/{participationId}", c.Reject).Methods(http.MethodPatch)
}

// CreateTemplate godoc
// @Summary Create a scheduled mission template
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateTemplateRequest true "Template"
// @Success 201 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse "Validation error or unknown category"
// @Router /api/admin/missions/regular [post]
func (c *AdminController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	tpl, err := c.serviceCollection.Management.CreateTemplate(r.Context(), actor, &req)
	if err != nil {
		c.handleServiceError(w, r, err, "create template")
		return
	}

	contextutils.GetLogger(r.Context(), c.logger).Info("Mission template created", zap.Int64("template_id", tpl.ID))
	c.responseBuilder.WriteCreated(w, r, tpl)
}

// CreateEventMission godoc
// @Summary Create a dated event mission
// @Description Accepts JSON, or multipart/form-data with an optional image part.
// @Tags Admin
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateEventMissionRequest true "Event mission"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse "start_date after deadline"
// @Router /api/admin/missions/event [post]
func (c *AdminController) CreateEventMission(w http.ResponseWriter, r *http.Request) {
	var (
		req   services.CreateEventMissionRequest
		image *models.Artifact
	)

	if utils.IsMultipart(r) {
		var err error
		image, err = utils.ReadArtifact(w, r, "image", c.maxUploadBytes)
		if err != nil {
			c.writeUploadError(w, r, err)
			return
		}
		if err := eventRequestFromForm(r, &req); err != nil {
			c.responseBuilder.WriteError(w, r, err)
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	mission, err := c.serviceCollection.Management.CreateEventMission(r.Context(), actor, &req, image)
	if err != nil {
		c.handleServiceError(w, r, err, "create event mission")
		return
	}

	contextutils.GetLogger(r.Context(), c.logger).Info("Event mission created",
		zap.Int64("mission_id", mission.ID),
		zap.String("status", string(mission.Status)),
	)
	c.responseBuilder.WriteCreated(w, r, mission)
}

// ListDeadlineMissions godoc
// @Summary List open missions by deadline
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/admin/missions/deadline [get]
func (c *AdminController) ListDeadlineMissions(w http.ResponseWriter, r *http.Request) {
	actor, _ := contextutils.GetActor(r.Context())
	items, err := c.serviceCollection.Management.ListDeadlineMissions(r.Context(), actor)
	c.writeResult(w, r, items, err, "list deadline missions")
}

// ListTerminatedMissions godoc
// @Summary List closed missions with every submission reviewed
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/admin/missions/termination [get]
func (c *AdminController) ListTerminatedMissions(w http.ResponseWriter, r *http.Request) {
	actor, _ := contextutils.GetActor(r.Context())
	items, err := c.serviceCollection.Management.ListTerminatedMissions(r.Context(), actor)
	c.writeResult(w, r, items, err, "list terminated missions")
}

// ListPendingApprovals godoc
// @Summary List missions with submissions awaiting review
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/admin/missions/pending [get]
func (c *AdminController) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, _ := contextutils.GetActor(r.Context())
	items, err := c.serviceCollection.Management.ListPendingApprovals(r.Context(), actor)
	c.writeResult(w, r, items, err, "list pending approvals")
}

// ListCategories godoc
// @Summary List mission categories with their icons
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /api/admin/missions/category [get]
func (c *AdminController) ListCategories(w http.ResponseWriter, r *http.Request) {
	actor, _ := contextutils.GetActor(r.Context())
	items, err := c.serviceCollection.Management.ListCategories(r.Context(), actor)
	c.writeResult(w, r, items, err, "list categories")
}

// GetApprovalRequests godoc
// @Summary List pending submissions of a mission
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param missionId path int true "Mission ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /api/admin/missions/request/{missionId} [get]
func (c *AdminController) GetApprovalRequests(w http.ResponseWriter, r *http.Request) {
	missionID, err := utils.PathID(r, "missionId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), nil))
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	list, err := c.serviceCollection.Management.GetApprovalRequests(r.Context(), actor, missionID)
	c.writeResult(w, r, list, err, "get approval requests")
}

// Approve godoc
// @Summary Approve a pending submission and credit its points
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param participationId path int true "Participation ID"
// @Success 200 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse "Submission already reviewed"
// @Router /api/admin/missions/request/approve/{participationId} [patch]
func (c *AdminController) Approve(w http.ResponseWriter, r *http.Request) {
	c.review(w, r, models.ParticipationApproved)
}

// Reject godoc
// @Summary Reject a pending submission
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param participationId path int true "Participation ID"
// @Success 200 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse "Submission already reviewed"
// @Router /api/admin/missions/request/reject/{participationId} [patch]
func (c *AdminController) Reject(w http.ResponseWriter, r *http.Request) {
	c.review(w, r, models.ParticipationRejected)
}

// reviewResult is the body returned after a review
type reviewResult struct {
	ParticipationID int64                      `json:"participation_id"`
	Status          models.ParticipationStatus `json:"status"`
}

func (c *AdminController) review(w http.ResponseWriter, r *http.Request, outcome models.ParticipationStatus) {
	participationID, err := utils.PathID(r, "participationId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), nil))
		return
	}

	actor, _ := contextutils.GetActor(r.Context())
	if outcome == models.ParticipationApproved {
		err = c.serviceCollection.Approvals.Approve(r.Context(), actor, participationID)
	} else {
		err = c.serviceCollection.Approvals.Reject(r.Context(), actor, participationID)
	}
	if err != nil {
		c.handleServiceError(w, r, err, "review participation")
		return
	}

	contextutils.GetLogger(r.Context(), c.logger).Info("Participation reviewed",
		zap.Int64("participation_id", participationID),
		zap.String("status", string(outcome)),
	)
	c.responseBuilder.WriteSuccess(w, r, reviewResult{ParticipationID: participationID, Status: outcome})
}

func (c *AdminController) writeResult(w http.ResponseWriter, r *http.Request, data interface{}, err error, operation string) {
	if err != nil {
		c.handleServiceError(w, r, err, operation)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, data)
}

func (c *AdminController) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, utils.ErrFileTooLarge) {
		c.responseBuilder.WriteError(w, r, services.NewValidationError(err.Error(), err).
			WithDetail("max_bytes", c.maxUploadBytes))
		return
	}
	c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid upload", err))
}

func (c *AdminController) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	contextutils.GetLogger(r.Context(), c.logger).Debug("Admin service error",
		zap.Error(err),
		zap.String("operation", operation),
	)
	c.responseBuilder.WriteError(w, r, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return services.NewValidationError("invalid JSON body", err)
	}
	return nil
}

func eventRequestFromForm(r *http.Request, req *services.CreateEventMissionRequest) error {
	req.Title = strings.TrimSpace(r.FormValue("title"))
	req.Content = strings.TrimSpace(r.FormValue("content"))
	req.Category = strings.TrimSpace(r.FormValue("category"))
	req.StartDate = strings.TrimSpace(r.FormValue("start_date"))
	req.Deadline = strings.TrimSpace(r.FormValue("deadline"))

	if raw := strings.TrimSpace(r.FormValue("point_value")); raw != "" {
		points, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return services.NewValidationError("point_value must be an integer", err)
		}
		req.PointValue = points
	}
	return nil
}
