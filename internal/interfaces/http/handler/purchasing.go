package handler

import (
	"github.com/erp/stockledger/internal/application/purchasing"
	"github.com/gin-gonic/gin"
)

// PurchasingHandler books purchase-order receipts into stock
type PurchasingHandler struct {
	BaseHandler
	receiving *purchasing.ReceivingService
}

// NewPurchasingHandler creates a new PurchasingHandler
func NewPurchasingHandler(receiving *purchasing.ReceivingService) *PurchasingHandler {
	return &PurchasingHandler{receiving: receiving}
}

// ReceiveOrder godoc
// @ID           receivePurchaseOrder
// @Summary      Receive purchase order lines
// @Description  Receives each line with a positive quantity into the warehouse. Lines succeed or fail independently; retry only the failed lines.
// @Tags         purchasing
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Param        request body purchasing.ReceiveLineItemsRequest true "Received lines"
// @Success      200 {object} APIResponse[purchasing.ReceiveLineItemsResult]
// @Failure      400 {object} ErrorResponse
// @Router       /purchasing/orders/{id}/receipts [post]
func (h *PurchasingHandler) ReceiveOrder(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req purchasing.ReceiveLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.PurchaseOrderID = orderID

	result, err := h.receiving.ReceiveLineItems(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
