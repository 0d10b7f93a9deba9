package router

import (
	"context"
	"net/http"
	"time"

	"ecomission/internal/handlers/api/v1/admin"
	"ecomission/internal/handlers/api/v1/jobs"
	"ecomission/internal/handlers/api/v1/missions"
	"ecomission/internal/middleware"
	"ecomission/internal/models"
	"ecomission/internal/response"
	"ecomission/internal/services"
	"ecomission/internal/utils/appinfo"

	_ "ecomission/internal/docs" // registers the OpenAPI document

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const healthTimeout = 3 * time.Second

// Dependencies are the components the HTTP surface is built from
type Dependencies struct {
	Services *services.ServiceCollection
	// Jobs is optional; the job endpoints are not mounted without it
	Jobs   jobs.Runner
	Logger *zap.Logger
}

// New builds the HTTP handler
func New(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Services.Config

	responseConfig := response.DefaultConfig()
	responseConfig.MaskInternalErrors = cfg.IsProduction()
	builder := response.NewBuilder(responseConfig, logger)

	auth := middleware.NewAuthenticator(cfg.Auth, builder, logger)
	limiter := middleware.NewRateLimiter(deps.Services.Cache, cfg.Server.SubmitLimit, cfg.Server.SubmitWindow, builder, logger)

	missionController := missions.NewMissionController(deps.Services, logger, builder)
	adminController := admin.NewAdminController(deps.Services, logger, builder)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		builder.WriteError(w, r, services.NewNotFoundError("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		builder.WriteJSON(w, r, builder.Error(r.Context(), &services.ServiceError{
			Type:       services.ErrTypeValidation,
			Message:    "method not allowed",
			StatusCode: http.StatusMethodNotAllowed,
		}), http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/health", healthHandler(deps.Services, builder)).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(middleware.SwaggerHandler(&middleware.SwaggerConfig{
		URL:      "/swagger/doc.json",
		Username: cfg.Server.SwaggerUser,
		Password: cfg.Server.SwaggerPassword,
	}))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.RequireAuth)

	student := api.PathPrefix("/missions").Subrouter()
	student.Use(auth.RequireRole(models.RoleStudent))
	missionController.Routes(student, limiter.Limit)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(auth.RequireRole(models.RoleAdmin))
	adminController.Routes(adminRouter.PathPrefix("/missions").Subrouter())
	if deps.Jobs != nil {
		jobs.NewJobController(deps.Jobs, logger, builder).Routes(adminRouter.PathPrefix("/jobs").Subrouter())
	}

	// outermost first: RequestID, RecoverPanic, Logging, CORS, SecureHeaders
	var handler http.Handler = r
	handler = middleware.SecureHeaders(handler)
	handler = middleware.CORS(cfg.Server.CORSOrigin)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RecoverPanic(builder, logger)(handler)
	handler = middleware.RequestID(logger)(handler)
	return handler
}

// healthReport is the body of GET /health
type healthReport struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Revision     string                      `json:"revision,omitempty"`
	Dependencies []services.DependencyStatus `json:"dependencies"`
}

// healthHandler godoc
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} response.APIResponse
// @Failure 503 {object} response.APIResponse
// @Router /health [get]
func healthHandler(sc *services.ServiceCollection, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		report := healthReport{
			Status:       "healthy",
			Service:      appinfo.Name,
			Version:      appinfo.Version(),
			Revision:     appinfo.Revision(),
			Dependencies: sc.HealthCheck(ctx),
		}
		status := http.StatusOK
		for _, dep := range report.Dependencies {
			if dep.Status != "healthy" {
				report.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}

		body := builder.Success(r.Context(), report)
		body.Success = status == http.StatusOK
		builder.WriteJSON(w, r, body, status)
	}
}
