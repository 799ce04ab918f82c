// Package handler exposes the profile API over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"kompas/internal/connectors"
	"kompas/internal/connectors/registry"
	"kompas/internal/forget"
	"kompas/internal/profile/models"
	derrors "kompas/pkg/domain-errors"
	"kompas/pkg/platform/httputil"
	"kompas/pkg/platform/privacy"
	"kompas/pkg/requestcontext"
)

// Orchestrator assembles profiles for the lookup endpoint.
type Orchestrator interface {
	GetCompanyProfile(ctx context.Context, q models.Query) (*models.ProfileResult, error)
}

// RegistryClient serves the raw registry pass-through endpoint.
type RegistryClient interface {
	GetProfileByID(ctx context.Context, id string) (*registry.Profile, error)
}

// HealthChecker reports backing store health, nil means nothing to check.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds the HTTP endpoints.
type Handler struct {
	orchestrator Orchestrator
	registry     RegistryClient
	publisher    forget.Publisher
	hasher       *privacy.Hasher
	health       HealthChecker
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithHealthChecker adds a backing store health probe.
func WithHealthChecker(hc HealthChecker) Option {
	return func(h *Handler) { h.health = hc }
}

// New constructs the handler.
func New(orc Orchestrator, reg RegistryClient, pub forget.Publisher, hasher *privacy.Hasher, opts ...Option) (*Handler, error) {
	if orc == nil {
		return nil, errors.New("orchestrator is required")
	}
	if reg == nil {
		return nil, errors.New("registry client is required")
	}
	if pub == nil {
		return nil, errors.New("forget publisher is required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	h := &Handler{orchestrator: orc, registry: reg, publisher: pub, hasher: hasher}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the public routes. Admin routes are mounted separately so
// main can wrap them in auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/profile", h.lookupProfile)
	r.Get("/registry/{registrationNumber}", h.registryProfile)
	r.Get("/health", h.healthCheck)
}

// RegisterAdmin mounts the admin routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/forget", h.forgetCompany)
}

func (h *Handler) lookupProfile(w http.ResponseWriter, r *http.Request) {
	q, ok := httputil.Decode[models.Query](w, r, h.logger)
	if !ok {
		return
	}
	if strings.TrimSpace(q.Raw) == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "query must not be empty"))
		return
	}
	if strings.TrimSpace(string(q.Country)) == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "country must not be empty"))
		return
	}

	res, err := h.orchestrator.GetCompanyProfile(r.Context(), q)
	if err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(r.Context(), "profile lookup failed", "error", err)
		}
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInternal, "profile lookup failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

type registrySBI struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Primary     bool   `json:"primary"`
}

type registryResponse struct {
	RegistrationNumber string        `json:"registrationNumber"`
	Name               string        `json:"name"`
	Status             string        `json:"status"`
	RegisteredAddress  string        `json:"registeredAddress,omitempty"`
	LegalForm          string        `json:"legalForm,omitempty"`
	SBICodes           []registrySBI `json:"sbiCodes"`
}

func (h *Handler) registryProfile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "registrationNumber"))
	if id == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "registration number must not be empty"))
		return
	}

	p, err := h.registry.GetProfileByID(r.Context(), id)
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	sbis := make([]registrySBI, 0, len(p.SBICodes))
	for _, sbi := range p.SBICodes {
		sbis = append(sbis, registrySBI{Code: sbi.Code, Description: sbi.Description, Primary: sbi.Primary})
	}
	httputil.WriteJSON(w, http.StatusOK, registryResponse{
		RegistrationNumber: p.ID,
		Name:               p.Name,
		Status:             p.Status,
		RegisteredAddress:  p.Address,
		LegalForm:          p.LegalForm,
		SBICodes:           sbis,
	})
}

func (h *Handler) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, connectors.ErrNotFound):
		httputil.WriteError(w, derrors.New(derrors.CodeNotFound, "company not found"))
	case errors.Is(err, connectors.ErrRateLimited):
		httputil.WriteError(w, derrors.New(derrors.CodeUpstreamDegraded, "registry throttled the request"))
	default:
		if h.logger != nil {
			h.logger.WarnContext(r.Context(), "registry lookup failed", "error", err)
		}
		httputil.WriteError(w, derrors.New(derrors.CodeUpstreamDegraded, "registry unavailable"))
	}
}

type forgetRequest struct {
	CompanyID string `json:"companyId"`
}

type forgetResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

func (h *Handler) forgetCompany(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[forgetRequest](w, r, h.logger)
	if !ok {
		return
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "companyId must not be empty"))
		return
	}

	job := forget.Job{
		ID:            uuid.NewString(),
		CompanyIDHash: h.hasher.HashIdentifier(strings.TrimSpace(req.CompanyID)),
		RequestedAt:   requestcontext.Now(r.Context()).UTC(),
	}
	if err := h.publisher.Enqueue(r.Context(), job); err != nil {
		if h.logger != nil {
			// Only the hash goes to the log, never the raw identifier.
			h.logger.ErrorContext(r.Context(), "forget job enqueue failed",
				"company_id_hash", job.CompanyIDHash, "error", err)
		}
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInternal, "could not queue erasure job"))
		return
	}

	if h.logger != nil {
		h.logger.InfoContext(r.Context(), "forget job accepted",
			"job_id", job.ID, "company_id_hash", job.CompanyIDHash,
			"caller", requestcontext.CallerID(r.Context()))
	}
	httputil.WriteJSON(w, http.StatusAccepted, forgetResponse{JobID: job.ID, Status: "queued"})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.health != nil {
		if err := h.health.Health(r.Context()); err != nil {
			if h.logger != nil {
				h.logger.WarnContext(r.Context(), "health probe degraded", "error", err)
			}
			status = "degraded"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}
