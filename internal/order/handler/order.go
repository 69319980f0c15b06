package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pharmalink/pharmalink-backend/internal/order/service"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/httputil"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/tenant"
)

// OrderHandler handles order lifecycle endpoints
type OrderHandler struct {
	service *service.OrderService
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(svc *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  log,
	}
}

// Place creates a new order from the calling pharmacy to a distributor
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	role, err := tenant.TenantRole(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if role != tenant.RolePharmacy {
		httputil.Error(w, errors.Forbidden("only pharmacies may place orders"))
		return
	}

	var req struct {
		DistributorID string                   `json:"distributor_id" validate:"required"`
		Items         []service.PlaceOrderLine `json:"items" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), tenantID, req.DistributorID, req.Items)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, order)
}

// List lists the tenant's orders on either side of the trade
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	status := r.URL.Query().Get("status")

	orders, total, err := h.service.ListOrders(r.Context(), tenantID, status, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, orders, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets an order visible to the tenant
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	order, err := h.service.GetOrder(r.Context(), tenantID, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// Transition moves an order through its state machine
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		TargetStatus string `json:"target_status" validate:"required,oneof=ACCEPTED REJECTED PACKED SHIPPED DELIVERED"`
		Remark       string `json:"remark"`
		Otp          string `json:"otp"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.Transition(r.Context(), tenantID, id, req.TargetStatus, req.Remark, req.Otp)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// Assign sets or clears the delivery agent on an order
func (h *OrderHandler) Assign(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustTenantID(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		AgentID *string `json:"agent_id"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.AssignAgent(r.Context(), tenantID, id, req.AgentID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}
