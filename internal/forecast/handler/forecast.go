package handler

import (
	"net/http"

	"github.com/pharmalink/pharmalink-backend/internal/forecast/service"
	"github.com/pharmalink/pharmalink-backend/pkg/httputil"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/tenant"
)

// ForecastHandler handles forecast endpoints
type ForecastHandler struct {
	demand *service.DemandService
	expiry *service.ExpiryService
	logger *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(demand *service.DemandService, expiry *service.ExpiryService, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		demand: demand,
		expiry: expiry,
		logger: log,
	}
}

// Demand returns reorder recommendations for the tenant
func (h *ForecastHandler) Demand(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	forecasts, err := h.demand.Forecast(r.Context(), tenantID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, forecasts)
}

// ExpiryRisk returns the at-risk batch report for the tenant
func (h *ForecastHandler) ExpiryRisk(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	report, err := h.expiry.Report(r.Context(), tenantID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
