package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/internal/inventory/service"
	"github.com/pharmalink/pharmalink-backend/pkg/httputil"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/tenant"
)

// TrendHandler handles market trend endpoints
type TrendHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(svc *service.LedgerService, log *logger.Logger) *TrendHandler {
	return &TrendHandler{
		service: svc,
		logger:  log,
	}
}

// List lists the tenant's trends
func (h *TrendHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	trends, err := h.service.ListTrends(r.Context(), tenantID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, trends)
}

// Create records a demand-boost trend
func (h *TrendHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	var req struct {
		Name               string   `json:"name" validate:"required"`
		AffectedCategories []string `json:"affected_categories" validate:"required,min=1"`
		BoostFactor        float64  `json:"boost_factor" validate:"required,gt=0"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	trend := &repository.Trend{
		TenantID:           tenantID,
		Name:               req.Name,
		AffectedCategories: strings.Join(req.AffectedCategories, ","),
		BoostFactor:        req.BoostFactor,
	}

	if err := h.service.CreateTrend(r.Context(), trend); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, trend)
}

// Get gets a single trend
func (h *TrendHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	trend, err := h.service.GetTrend(r.Context(), tenantID, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, trend)
}

// Archive deactivates a trend
func (h *TrendHandler) Archive(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.ArchiveTrend(r.Context(), tenantID, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
