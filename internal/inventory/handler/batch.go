package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/internal/inventory/service"
	"github.com/pharmalink/pharmalink-backend/pkg/httputil"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/tenant"
	"github.com/shopspring/decimal"
)

// BatchHandler handles batch ledger endpoints
type BatchHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.LedgerService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

// ListByProduct lists a product's batches, soonest expiry first
func (h *BatchHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	productID := chi.URLParam(r, "id")

	onlyPositive := r.URL.Query().Get("include_empty") != "true"

	batches, err := h.service.BatchesFor(r.Context(), tenantID, productID, onlyPositive)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Create records a new lot of stock for a product
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	productID := chi.URLParam(r, "id")

	var req struct {
		BatchNumber  string          `json:"batch_number" validate:"required"`
		ExpiryDate   time.Time       `json:"expiry_date" validate:"required"`
		Quantity     int             `json:"quantity" validate:"required,min=1"`
		MRP          decimal.Decimal `json:"mrp"`
		PurchaseRate decimal.Decimal `json:"purchase_rate"`
		SupplierID   *string         `json:"supplier_id"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch := &repository.Batch{
		TenantID:     tenantID,
		ProductID:    productID,
		BatchNumber:  req.BatchNumber,
		ExpiryDate:   req.ExpiryDate,
		Quantity:     req.Quantity,
		MRP:          req.MRP,
		PurchaseRate: req.PurchaseRate,
		SupplierID:   req.SupplierID,
	}

	if err := h.service.CreateBatch(r.Context(), batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}
