package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/internal/inventory/service"
	"github.com/pharmalink/pharmalink-backend/pkg/httputil"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/tenant"
	"github.com/shopspring/decimal"
)

// ProductHandler handles product ledger endpoints
type ProductHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(svc *service.LedgerService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  log,
	}
}

// List lists the tenant's products with stock annotations
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	category := r.URL.Query().Get("category")

	products, total, err := h.service.ListProducts(r.Context(), tenantID, page, perPage, category)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, products, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets a product with its batches and total stock
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	product, err := h.service.GetProduct(r.Context(), tenantID, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// Create creates a new product in the tenant's ledger
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	var req struct {
		Name          string          `json:"name" validate:"required"`
		SKU           string          `json:"sku"`
		Description   *string         `json:"description"`
		Category      string          `json:"category" validate:"required"`
		Manufacturer  *string         `json:"manufacturer"`
		Unit          string          `json:"unit" validate:"required"`
		GstRate       decimal.Decimal `json:"gst_rate"`
		MinStockLevel int             `json:"min_stock_level" validate:"min=0"`
		Seasonality   string          `json:"seasonality" validate:"omitempty,oneof=Summer Monsoon Winter AllYear"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	product := &repository.Product{
		TenantID:      tenantID,
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		Category:      req.Category,
		Manufacturer:  req.Manufacturer,
		Unit:          req.Unit,
		GstRate:       req.GstRate,
		MinStockLevel: req.MinStockLevel,
		Seasonality:   req.Seasonality,
	}

	if err := h.service.CreateProduct(r.Context(), product); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, product)
}

// Update replaces a product's attributes. The payload carries the full
// product; renaming recomputes the matching key.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Name          string          `json:"name" validate:"required"`
		SKU           string          `json:"sku"`
		Description   *string         `json:"description"`
		Category      string          `json:"category" validate:"required"`
		Manufacturer  *string         `json:"manufacturer"`
		Unit          string          `json:"unit" validate:"required"`
		GstRate       decimal.Decimal `json:"gst_rate"`
		MinStockLevel int             `json:"min_stock_level" validate:"min=0"`
		Seasonality   string          `json:"seasonality" validate:"required,oneof=Summer Monsoon Winter AllYear"`
		IsActive      bool            `json:"is_active"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	product := &repository.Product{
		ID:            id,
		TenantID:      tenantID,
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		Category:      req.Category,
		Manufacturer:  req.Manufacturer,
		Unit:          req.Unit,
		GstRate:       req.GstRate,
		MinStockLevel: req.MinStockLevel,
		Seasonality:   req.Seasonality,
		IsActive:      req.IsActive,
	}

	updated, err := h.service.UpdateProduct(r.Context(), product)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, updated)
}
