package handler

import (
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryHandler handles stock record and ledger API endpoints
type InventoryHandler struct {
	BaseHandler
	engine  *inventoryapp.Engine
	queries *inventoryapp.QueryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(engine *inventoryapp.Engine, queries *inventoryapp.QueryService) *InventoryHandler {
	return &InventoryHandler{
		engine:  engine,
		queries: queries,
	}
}

// StockKeyQuery identifies one stock record in a query string
type StockKeyQuery struct {
	ProductID   string `form:"product_id" binding:"required,uuid" example:"5f0c8d1e-2f7a-4d2b-9f55-0b1f6f1c9a01"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid" example:"8a6b3c2d-1e0f-4a5b-8c7d-6e5f4a3b2c1d"`
}

func (q StockKeyQuery) ids() (uuid.UUID, uuid.UUID) {
	return uuid.MustParse(q.ProductID), uuid.MustParse(q.WarehouseID)
}

// DeactivateRequest represents a request to deactivate a stock record
type DeactivateRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required" example:"5f0c8d1e-2f7a-4d2b-9f55-0b1f6f1c9a01"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required" example:"8a6b3c2d-1e0f-4a5b-8c7d-6e5f4a3b2c1d"`
}

// BulkAdjustRequest represents several independent adjustments
type BulkAdjustRequest struct {
	Items []inventoryapp.AdjustRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

type stockListQuery struct {
	ProductID   string `form:"product_id" binding:"uuid_or_empty"`
	WarehouseID string `form:"warehouse_id" binding:"uuid_or_empty"`
	inventoryapp.StockRecordListFilter
}

type movementListQuery struct {
	ProductID   string `form:"product_id" binding:"uuid_or_empty"`
	WarehouseID string `form:"warehouse_id" binding:"uuid_or_empty"`
	inventoryapp.MovementListFilter
}

type reorderQuery struct {
	WarehouseID string `form:"warehouse_id" binding:"uuid_or_empty"`
}

// Adjust godoc
// @ID           adjustStock
// @Summary      Adjust stock
// @Description  Add to, subtract from or set the quantity of an existing stock record
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-Actor header string false "Operator performing the change"
// @Param        request body inventoryapp.AdjustRequest true "Adjustment"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/stock/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req inventoryapp.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Adjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Transfer godoc
// @ID           transferStock
// @Summary      Transfer stock
// @Description  Move stock between two warehouses atomically. The destination record is created if absent.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-Actor header string false "Operator performing the change"
// @Param        request body inventoryapp.TransferRequest true "Transfer"
// @Success      200 {object} APIResponse[inventoryapp.TransferResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/stock/transfer [post]
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req inventoryapp.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Transfer(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Receive godoc
// @ID           receiveStock
// @Summary      Receive stock
// @Description  Book incoming stock, creating the stock record on first receipt
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-Actor header string false "Operator performing the change"
// @Param        request body inventoryapp.ReceiveRequest true "Receipt"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/stock/receive [post]
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req inventoryapp.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Issue godoc
// @ID           issueStock
// @Summary      Issue stock
// @Description  Take stock out of a warehouse, consuming a matching reservation first
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.IssueRequest true "Issue"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /inventory/stock/issue [post]
func (h *InventoryHandler) Issue(c *gin.Context) {
	var req inventoryapp.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Issue(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reserve godoc
// @ID           reserveStock
// @Summary      Reserve stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ReservationRequest true "Reservation"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/stock/reserve [post]
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req inventoryapp.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Reserve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Release godoc
// @ID           releaseStock
// @Summary      Release a reservation
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ReservationRequest true "Reservation"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/stock/release [post]
func (h *InventoryHandler) Release(c *gin.Context) {
	var req inventoryapp.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Release(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkAdjust godoc
// @ID           bulkAdjustStock
// @Summary      Bulk adjust stock
// @Description  Apply up to 100 adjustments, each in its own transaction. Item failures are reported per item.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body BulkAdjustRequest true "Adjustments"
// @Success      200 {object} APIResponse[inventoryapp.BulkAdjustResult]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/stock/bulk-adjust [post]
func (h *InventoryHandler) BulkAdjust(c *gin.Context) {
	var req BulkAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.BulkAdjust(c.Request.Context(), req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SetThresholds godoc
// @ID           setStockThresholds
// @Summary      Set stock thresholds
// @Description  Set the reorder point and max stock level, creating the record if absent
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ThresholdRequest true "Thresholds"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/stock/thresholds [put]
func (h *InventoryHandler) SetThresholds(c *gin.Context) {
	var req inventoryapp.ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.SetThresholds(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Deactivate godoc
// @ID           deactivateStock
// @Summary      Deactivate a stock record
// @Description  Deactivate an empty, unreserved stock record. Inactive records reject further operations.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body DeactivateRequest true "Record to deactivate"
// @Success      200 {object} APIResponse[inventoryapp.StockResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/stock/deactivate [post]
func (h *InventoryHandler) Deactivate(c *gin.Context) {
	var req DeactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.engine.Deactivate(c.Request.Context(), req.ProductID, req.WarehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// List godoc
// @ID           listStockRecords
// @Summary      List stock records
// @Tags         inventory
// @Produce      json
// @Param        product_id query string false "Product ID"
// @Param        warehouse_id query string false "Warehouse ID"
// @Param        status query string false "Stock status" Enums(out_of_stock, low_stock, in_stock)
// @Param        active_only query bool false "Only active records"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]inventoryapp.StockRecordResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/stock [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var q stockListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.StockRecordListFilter
	filter.ProductID = optionalUUID(q.ProductID)
	filter.WarehouseID = optionalUUID(q.WarehouseID)

	records, total, err := h.queries.ListStockRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize, 20)
	h.SuccessWithMeta(c, records, total, page, pageSize)
}

// GetRecord godoc
// @ID           getStockRecord
// @Summary      Get a stock record
// @Tags         inventory
// @Produce      json
// @Param        product_id query string true "Product ID"
// @Param        warehouse_id query string true "Warehouse ID"
// @Success      200 {object} APIResponse[inventoryapp.StockRecordResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/stock/record [get]
func (h *InventoryHandler) GetRecord(c *gin.Context) {
	var q StockKeyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	productID, warehouseID := q.ids()

	record, err := h.queries.GetStockRecord(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// StockLevels godoc
// @ID           getProductStockLevels
// @Summary      Get a product's stock levels
// @Description  Totals across warehouses plus the per-warehouse breakdown
// @Tags         inventory
// @Produce      json
// @Param        product_id path string true "Product ID"
// @Success      200 {object} APIResponse[inventoryapp.StockLevelsResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/products/{product_id}/levels [get]
func (h *InventoryHandler) StockLevels(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	levels, err := h.queries.StockLevels(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, levels)
}

// ReorderSuggestions godoc
// @ID           listReorderSuggestions
// @Summary      List reorder suggestions
// @Description  Active records at or below their reorder point, most urgent first
// @Tags         inventory
// @Produce      json
// @Param        warehouse_id query string false "Warehouse ID"
// @Success      200 {object} APIResponse[[]inventoryapp.ReorderSuggestion]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/reorder-suggestions [get]
func (h *InventoryHandler) ReorderSuggestions(c *gin.Context) {
	var q reorderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	suggestions, err := h.queries.ReorderSuggestions(c.Request.Context(), optionalUUID(q.WarehouseID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suggestions)
}

// Movements godoc
// @ID           listMovements
// @Summary      List ledger movements
// @Description  Movement ledger entries, newest first
// @Tags         inventory
// @Produce      json
// @Param        product_id query string false "Product ID"
// @Param        warehouse_id query string false "Warehouse ID"
// @Param        movement_type query string false "Movement type" Enums(in, out, transfer_out, transfer_in, adjustment)
// @Param        reference_type query string false "Reference type"
// @Param        reference_id query string false "Reference ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]inventoryapp.MovementResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/movements [get]
func (h *InventoryHandler) Movements(c *gin.Context) {
	var q movementListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.MovementListFilter
	filter.ProductID = optionalUUID(q.ProductID)
	filter.WarehouseID = optionalUUID(q.WarehouseID)

	movements, err := h.queries.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}

// Reconcile godoc
// @ID           reconcileStock
// @Summary      Reconcile a stock record with its ledger
// @Description  Compares the stored quantity with the sum of signed ledger movements
// @Tags         inventory
// @Produce      json
// @Param        product_id query string true "Product ID"
// @Param        warehouse_id query string true "Warehouse ID"
// @Success      200 {object} APIResponse[inventoryapp.ReconciliationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/reconcile [get]
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	var q StockKeyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	productID, warehouseID := q.ids()

	result, err := h.queries.Reconcile(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
