package handler

import (
	alertapp "github.com/erp/stockledger/internal/application/alert"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// AlertHandler handles stock alert API endpoints
type AlertHandler struct {
	BaseHandler
	alerts *alertapp.Service
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts *alertapp.Service) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

type alertListQuery struct {
	ProductID   string `form:"product_id" binding:"uuid_or_empty"`
	WarehouseID string `form:"warehouse_id" binding:"uuid_or_empty"`
	alertapp.ListFilter
}

// List godoc
// @ID           listAlerts
// @Summary      List stock alerts
// @Tags         alerts
// @Produce      json
// @Param        product_id query string false "Product ID"
// @Param        warehouse_id query string false "Warehouse ID"
// @Param        alert_type query string false "Alert type" Enums(low_stock, out_of_stock, overstock)
// @Param        severity query string false "Severity" Enums(low, medium, high, critical)
// @Param        open_only query bool false "Only unresolved alerts"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]alertapp.AlertResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var q alertListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.ListFilter
	filter.ProductID = optionalUUID(q.ProductID)
	filter.WarehouseID = optionalUUID(q.WarehouseID)

	alerts, total, err := h.alerts.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize, 20)
	h.SuccessWithMeta(c, alerts, total, page, pageSize)
}

// Get godoc
// @ID           getAlert
// @Summary      Get a stock alert
// @Tags         alerts
// @Produce      json
// @Param        id path string true "Alert ID"
// @Success      200 {object} APIResponse[alertapp.AlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	a, err := h.alerts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}

// Evaluate godoc
// @ID           evaluateAlerts
// @Summary      Re-evaluate alerts for a stock record
// @Description  Runs the alert rules against the record's current state and reports any transitions
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        request body alertapp.EvaluateRequest true "Stock record"
// @Success      200 {object} APIResponse[[]inventoryapp.AlertChangeResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /alerts/evaluate [post]
func (h *AlertHandler) Evaluate(c *gin.Context) {
	var req alertapp.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	var changes []inventoryapp.AlertChangeResponse
	changes, err := h.alerts.Evaluate(c.Request.Context(), req.ProductID, req.WarehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, changes)
}

// Resolve godoc
// @ID           resolveAlert
// @Summary      Resolve a stock alert
// @Description  Close an open alert with operator notes. resolved_by defaults to the X-Actor header.
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        id path string true "Alert ID"
// @Param        X-Actor header string false "Operator resolving the alert"
// @Param        request body alertapp.ResolveRequest true "Resolution"
// @Success      200 {object} APIResponse[alertapp.AlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req alertapp.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if req.ResolvedBy == "" {
		req.ResolvedBy = getActor(c)
	}

	a, err := h.alerts.Resolve(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}
