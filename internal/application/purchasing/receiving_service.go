// Package purchasing books purchase-order receipts into the stock ledger.
package purchasing

import (
	"context"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockReceiver books incoming stock. Implemented by inventoryapp.Engine.
type StockReceiver interface {
	Receive(ctx context.Context, req inventoryapp.ReceiveRequest) (*inventoryapp.StockResult, error)
}

// LineStatus is the outcome of one receipt line
type LineStatus string

const (
	LineStatusReceived LineStatus = "received"
	LineStatusSkipped  LineStatus = "skipped"
	LineStatusFailed   LineStatus = "failed"
)

// LineItem is one received purchase-order line
type LineItem struct {
	ProductID        uuid.UUID        `json:"product_id" binding:"required"`
	ReceivedQuantity int64            `json:"received_quantity"`
	UnitCost         *decimal.Decimal `json:"unit_cost"`
}

// ReceiveLineItemsRequest represents the receipt of a purchase order into one warehouse
type ReceiveLineItemsRequest struct {
	PurchaseOrderID uuid.UUID  `json:"-"`
	WarehouseID     uuid.UUID  `json:"warehouse_id" binding:"required"`
	Items           []LineItem `json:"items" binding:"required,min=1,dive"`
	Notes           string     `json:"notes" binding:"max=500"`
}

// LineResult is the outcome of one line
type LineResult struct {
	Index            int                       `json:"index"`
	ProductID        uuid.UUID                 `json:"product_id"`
	ReceivedQuantity int64                     `json:"received_quantity"`
	Status           LineStatus                `json:"status"`
	Result           *inventoryapp.StockResult `json:"result,omitempty"`
	ErrorCode        string                    `json:"error_code,omitempty"`
	Error            string                    `json:"error,omitempty"`
}

// ReceiveLineItemsResult reports every line so callers can retry failed lines only
type ReceiveLineItemsResult struct {
	PurchaseOrderID uuid.UUID    `json:"purchase_order_id"`
	WarehouseID     uuid.UUID    `json:"warehouse_id"`
	ReceivedCount   int          `json:"received_count"`
	SkippedCount    int          `json:"skipped_count"`
	FailedCount     int          `json:"failed_count"`
	Lines           []LineResult `json:"lines"`
}

// FailedItems returns the line items that should be retried
func (r *ReceiveLineItemsResult) FailedItems(items []LineItem) []LineItem {
	failed := make([]LineItem, 0, r.FailedCount)
	for _, line := range r.Lines {
		if line.Status == LineStatusFailed && line.Index < len(items) {
			failed = append(failed, items[line.Index])
		}
	}
	return failed
}

// ReceivingService turns purchase-order receipts into engine receive operations
type ReceivingService struct {
	receiver StockReceiver
	logger   *zap.Logger
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(receiver StockReceiver, logger *zap.Logger) *ReceivingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceivingService{
		receiver: receiver,
		logger:   logger,
	}
}

// ReceiveLineItems receives each line with a positive quantity as its own
// engine operation referencing the purchase order. Zero-quantity lines are
// skipped. A failed line is reported and does not roll back earlier lines.
func (s *ReceivingService) ReceiveLineItems(ctx context.Context, req ReceiveLineItemsRequest) (*ReceiveLineItemsResult, error) {
	if req.PurchaseOrderID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Purchase order ID cannot be empty")
	}
	if req.WarehouseID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Warehouse ID cannot be empty")
	}

	result := &ReceiveLineItemsResult{
		PurchaseOrderID: req.PurchaseOrderID,
		WarehouseID:     req.WarehouseID,
		Lines:           make([]LineResult, 0, len(req.Items)),
	}
	referenceID := req.PurchaseOrderID.String()

	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := LineResult{
			Index:            i,
			ProductID:        item.ProductID,
			ReceivedQuantity: item.ReceivedQuantity,
		}

		switch {
		case item.ReceivedQuantity == 0:
			line.Status = LineStatusSkipped
			result.SkippedCount++

		case item.ReceivedQuantity < 0:
			fail(&line, shared.ErrInvalidQuantity.WithMessage("Received quantity cannot be negative"))
			result.FailedCount++

		default:
			res, err := s.receiver.Receive(ctx, inventoryapp.ReceiveRequest{
				ProductID:     item.ProductID,
				WarehouseID:   req.WarehouseID,
				Quantity:      item.ReceivedQuantity,
				ReferenceType: inventory.ReferenceTypePurchaseOrder,
				ReferenceID:   referenceID,
				UnitCost:      item.UnitCost,
				Notes:         req.Notes,
			})
			if err != nil {
				fail(&line, err)
				result.FailedCount++
				s.logger.Warn("purchase order line failed to receive",
					zap.String("purchase_order_id", referenceID),
					zap.Int("line", i),
					zap.String("product_id", item.ProductID.String()),
					zap.Error(err),
				)
				break
			}
			line.Status = LineStatusReceived
			line.Result = res
			result.ReceivedCount++
		}

		result.Lines = append(result.Lines, line)
	}

	s.logger.Info("purchase order receipt processed",
		zap.String("purchase_order_id", referenceID),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.Int("received", result.ReceivedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	)
	return result, nil
}

func fail(line *LineResult, err error) {
	line.Status = LineStatusFailed
	line.ErrorCode = shared.ErrorCode(err)
	line.Error = err.Error()
}
